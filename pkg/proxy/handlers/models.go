package handlers

import (
	"net/http"

	"toolgate/pkg/proxy"
	"toolgate/pkg/proxy/types"
)

// ModelsHandler serves GET /v1/models with a static catalog describing the
// single configured model.
type ModelsHandler struct {
	ModelID string
}

// NewModelsHandler creates the model catalog handler.
func NewModelsHandler(modelID string) *ModelsHandler {
	return &ModelsHandler{ModelID: modelID}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list := types.ModelList{
		Object: "list",
		Data: []types.Model{
			{
				ID:      h.ModelID,
				Object:  "model",
				Created: 1700000000,
				OwnedBy: "toolgate",
			},
		},
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, list)
}
