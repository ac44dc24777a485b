package indexer

import (
	"context"
	"errors"
	"net/http"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	store      *Store
	logger     cmtlog.Logger
	listenAddr string
}

func NewService(listenAddr string, store *Store, logger cmtlog.Logger) *Service {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Service{
		engine:     r,
		store:      store,
		logger:     logger.With("module", "indexer-api"),
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.GET("/height", s.handleGetHeight)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves the API until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.listenAddr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("indexer api listening", "addr", s.listenAddr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type GetProposalsReq struct {
	ProposalId uint64 `json:"proposalId"`
	Creator    string `json:"creator"`
	Status     string `json:"status"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []Proposal `json:"proposals"`
	Total     uint64     `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var req GetProposalsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	response := GetProposalsResponse{Proposals: make([]Proposal, 0)}
	if req.ProposalId != 0 {
		p, err := s.store.Proposal(req.ProposalId)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, *p)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}
	proposals, total, err := s.store.Proposals(ProposalFilter{Creator: checksum(req.Creator), Status: req.Status}, req.Page, req.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Proposals = proposals
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	ProposalId uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []ProposalVote `json:"votes"`
	Total uint64         `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var req GetVotesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var (
		votes []ProposalVote
		total uint64
		err   error
	)
	switch {
	case req.ProposalId != 0:
		votes, total, err = s.store.VotesByProposal(req.ProposalId, req.Page, req.PageSize)
	case req.Voter != "":
		votes, total, err = s.store.VotesByVoter(checksum(req.Voter), req.Page, req.PageSize)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId or voter is required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

func (s *Service) handleGetHeight(c *gin.Context) {
	h, err := s.store.LastHeight()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"height": h})
}

// checksum normalizes hex addresses to the form the indexer stores.
func checksum(addr string) string {
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}
