package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id              uint64 `gorm:"primary_key" json:"id"`
	Creator         string `gorm:"index" json:"creator"`
	IpfsHash        string `json:"ipfs_hash"`
	Status          string `gorm:"index" json:"status"`
	CreateHeight    uint64 `json:"create_height"`
	SettleHeight    uint64 `json:"settle_height"`
	CreateTimestamp int64  `json:"create_timestamp"`
	EndTimestamp    int64  `json:"end_timestamp"`
	ForVoices       string `json:"for_voices"`
	AgainstVoices   string `json:"against_voices"`
	AbstainVoices   string `json:"abstain_voices"`
	Voters          uint64 `json:"voters"`
}

type ProposalVote struct {
	Id       uint64 `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Proposal uint64 `gorm:"unique_index:idx_proposal_voter" json:"proposal"`
	Voter    string `gorm:"unique_index:idx_proposal_voter;index" json:"voter"`
	Vote     string `json:"vote"`
	Power    string `json:"power"`
	Height   uint64 `json:"height"`
}
