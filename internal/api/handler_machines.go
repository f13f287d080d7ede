package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListMachines returns every machine, available ones first.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.engine.ListMachines(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]machineView, len(machines))
	for i, m := range machines {
		out[i] = newMachineView(m)
	}
	c.JSON(http.StatusOK, gin.H{"machines": out})
}

func (h *Handler) GetMachine(c *gin.Context) {
	m, err := h.engine.GetMachine(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMachineView(m))
}
