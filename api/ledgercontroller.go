package api

import (
	"net/http"
	"strconv"

	"storybot/ledger"
	"storybot/types"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerLedgerRoutes(r *gin.Engine) {
	g := r.Group("/api/ledger")
	g.GET("/:namespace", s.handleLedgerCount)
	g.GET("/:namespace/:id", s.handleLedgerContains)
}

func namespaceParam(c *gin.Context) (types.Namespace, bool) {
	ns := types.Namespace(c.Param("namespace"))
	if !ns.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown namespace: " + string(ns)})
		return "", false
	}
	return ns, true
}

// handleLedgerCount handles GET /api/ledger/:namespace. With ?limit=N the
// newest N records are included.
func (s *Server) handleLedgerCount(c *gin.Context) {
	ns, ok := namespaceParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	resp := gin.H{"namespace": ns}
	err := s.ctrl.Inspect(c.Request.Context(), func(l *ledger.Ledger) error {
		resp["source"] = l.Source()
		resp["count"] = l.Count(ns)
		if limit > 0 {
			records := l.Records(ns)
			if len(records) > limit {
				records = records[len(records)-limit:]
			}
			resp["records"] = records
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleLedgerContains handles GET /api/ledger/:namespace/:id
func (s *Server) handleLedgerContains(c *gin.Context) {
	ns, ok := namespaceParam(c)
	if !ok {
		return
	}
	id := types.SanitizeID(c.Param("id"))

	var contains bool
	err := s.ctrl.Inspect(c.Request.Context(), func(l *ledger.Ledger) error {
		contains = l.Contains(ns, id)
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read ledger: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"namespace": ns, "id": id, "contains": contains})
}
