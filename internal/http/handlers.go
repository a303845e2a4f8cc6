package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/log"
)

const ownerKey = "owner"

// requireOwner rejects API calls without an owner and stores it on the
// gin context.
func requireOwner(c *gin.Context) {
	owner, err := ParseOwner(c.GetHeader(HeaderOwnerID), c.GetHeader(HeaderOwnerEmail))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Set(ownerKey, owner)
	c.Next()
}

func ownerOf(c *gin.Context) core.Owner {
	owner, _ := c.MustGet(ownerKey).(core.Owner)
	return owner
}

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.svc.ListCategories(c.Request.Context(), ownerOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryViews(cats))
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		respondError(c, err)
		return
	}

	owner := ownerOf(c)
	res, err := s.svc.CreateCategory(c.Request.Context(), owner, in)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusCreated, newMutationView(res, false, true))
}

func (s *Server) handleAddPresets(c *gin.Context) {
	owner := ownerOf(c)
	created, err := s.svc.AddPresetCategories(c.Request.Context(), owner)
	if len(created) > 0 {
		s.invalidateSummary(owner.ID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryViews(created))
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	var req categoryPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		respondError(c, err)
		return
	}

	owner := ownerOf(c)
	res, err := s.svc.UpdateCategory(c.Request.Context(), owner, c.Param("id"), u)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusOK, newMutationView(res, false, res.Category.ID != ""))
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	owner := ownerOf(c)
	res, err := s.svc.DeleteCategory(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusOK, newMutationView(res, false, false))
}

func (s *Server) handleListTransactions(c *gin.Context) {
	limit, err := ParseLimit(c.Query("limit"), 0)
	if err != nil {
		respondError(c, err)
		return
	}
	txs, err := s.svc.ListTransactions(c.Request.Context(), ownerOf(c).ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionViews(txs))
}

func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	in, err := req.toInput(s.now())
	if err != nil {
		respondError(c, err)
		return
	}

	owner := ownerOf(c)
	res, err := s.svc.CreateTransaction(c.Request.Context(), owner, in)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusCreated, newMutationView(res, true, false))
}

func (s *Server) handleUpdateTransaction(c *gin.Context) {
	var req transactionPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		respondError(c, err)
		return
	}

	owner := ownerOf(c)
	res, err := s.svc.UpdateTransaction(c.Request.Context(), owner, c.Param("id"), u)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusOK, newMutationView(res, true, false))
}

func (s *Server) handleDeleteTransaction(c *gin.Context) {
	owner := ownerOf(c)
	res, err := s.svc.DeleteTransaction(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusOK, newMutationView(res, false, false))
}

func (s *Server) handleSummary(c *gin.Context) {
	recent, err := ParseLimit(c.Query("recent"), core.DefaultRecentTransactions)
	if err != nil {
		respondError(c, err)
		return
	}

	sum, hit, err := s.summary(c.Request.Context(), ownerOf(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, newSummaryView(sum, recent))
}

func (s *Server) handleRecompute(c *gin.Context) {
	owner := ownerOf(c)
	res, err := s.svc.Recompute(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	s.invalidateSummary(owner.ID)
	c.JSON(http.StatusOK, newMutationView(res, false, false))
}

func (s *Server) handleResetNotifications(c *gin.Context) {
	owner := ownerOf(c)
	n, err := s.svc.ResetNotifications(c.Request.Context(), owner.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

func (s *Server) handleExport(c *gin.Context) {
	owner := ownerOf(c)
	ref, err := s.svc.Export(c.Request.Context(), owner.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "Summary exported",
		log.FieldComponent, log.ComponentHTTP,
		log.FieldOwnerID, owner.ID,
		"ref", ref)
	c.JSON(http.StatusOK, gin.H{"ref": ref})
}
