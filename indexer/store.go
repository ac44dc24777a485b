package indexer

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidVoices = errors.New("invalid voices")
)

// Store keeps the indexed proposals and votes in sqlite.
type Store struct {
	db   *gorm.DB
	inTx bool
}

func OpenStore(dbPath string) (*Store, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" on one database.
	db.DB().SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &ProposalVote{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Batch runs fn in one transaction and commits only if fn succeeds. fn
// must use the Store it is given; the outer Store shares the single
// connection and would block until the transaction ends. Nested calls
// join the open transaction.
func (s *Store) Batch(fn func(tx *Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	db := s.db.Begin()
	if db.Error != nil {
		return db.Error
	}
	defer func() {
		if r := recover(); r != nil {
			db.Rollback()
			panic(r)
		}
		if err != nil {
			db.Rollback()
		}
	}()
	if err = fn(&Store{db: db, inTx: true}); err != nil {
		return err
	}
	return db.Commit().Error
}

// LastHeight returns the last fully indexed block height, zero if none.
func (s *Store) LastHeight() (uint64, error) {
	h := Height{Id: 1}
	err := s.db.First(&h).Error
	if gorm.IsRecordNotFoundError(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return h.Height, nil
}

func (s *Store) SaveHeight(height uint64) error {
	return s.db.Save(&Height{Id: 1, Height: height}).Error
}

func (s *Store) SaveProposal(p *Proposal) error {
	if p.ForVoices == "" {
		p.ForVoices, p.AgainstVoices, p.AbstainVoices = "0", "0", "0"
	}
	return s.db.Save(p).Error
}

func (s *Store) SetProposalStatus(id uint64, status string, height uint64) error {
	res := s.db.Model(&Proposal{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        status,
		"settle_height": height,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	return nil
}

func (s *Store) Proposal(id uint64) (*Proposal, error) {
	var p Proposal
	err := s.db.Where("id = ?", id).First(&p).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProposalFilter narrows Proposals. Empty fields match everything.
type ProposalFilter struct {
	Creator string
	Status  string
}

func (s *Store) Proposals(filter ProposalFilter, page, pageSize int) ([]Proposal, uint64, error) {
	page, pageSize = normalizePage(page, pageSize)
	q := s.db.Model(&Proposal{})
	if filter.Creator != "" {
		q = q.Where("creator = ?", filter.Creator)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	proposals := make([]Proposal, 0)
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

// AddVote records a vote and folds its power into the proposal's voices.
// A vote for a proposal that was never indexed is kept without a tally.
// A second vote from the same voter on the same proposal is skipped.
func (s *Store) AddVote(v *ProposalVote) error {
	power := new(uint256.Int)
	if err := power.SetFromDecimal(v.Power); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVoices, err)
	}
	return s.Batch(func(tx *Store) error {
		var existing ProposalVote
		err := tx.db.Where("proposal = ? AND voter = ?", v.Proposal, v.Voter).First(&existing).Error
		if err == nil {
			return nil
		}
		if !gorm.IsRecordNotFoundError(err) {
			return err
		}
		if err = tx.db.Create(v).Error; err != nil {
			return err
		}
		var p Proposal
		err = tx.db.Where("id = ?", v.Proposal).First(&p).Error
		if gorm.IsRecordNotFoundError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		var bucket *string
		switch v.Vote {
		case "for":
			bucket = &p.ForVoices
		case "against":
			bucket = &p.AgainstVoices
		case "abstain":
			bucket = &p.AbstainVoices
		default:
			return fmt.Errorf("%w: vote %q", ErrInvalidVoices, v.Vote)
		}
		if *bucket, err = addDecimal(*bucket, power); err != nil {
			return err
		}
		p.Voters++
		return tx.db.Save(&p).Error
	})
}

func (s *Store) VotesByProposal(proposal uint64, page, pageSize int) ([]ProposalVote, uint64, error) {
	return s.votes(s.db.Where("proposal = ?", proposal), page, pageSize)
}

func (s *Store) VotesByVoter(voter string, page, pageSize int) ([]ProposalVote, uint64, error) {
	return s.votes(s.db.Where("voter = ?", voter), page, pageSize)
}

func (s *Store) votes(q *gorm.DB, page, pageSize int) ([]ProposalVote, uint64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var total uint64
	if err := q.Model(&ProposalVote{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	votes := make([]ProposalVote, 0)
	err := q.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func addDecimal(dec string, v *uint256.Int) (string, error) {
	cur := new(uint256.Int)
	if dec != "" {
		if err := cur.SetFromDecimal(dec); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidVoices, err)
		}
	}
	if _, overflow := cur.AddOverflow(cur, v); overflow {
		return "", fmt.Errorf("%w: overflow", ErrInvalidVoices)
	}
	return cur.Dec(), nil
}
