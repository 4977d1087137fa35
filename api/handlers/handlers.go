package handlers

import (
	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Stage    *StageHandler
	Settings *SettingsHandler
}

func NewHandlers(
	documentService service.DocumentService,
	settingsService service.SettingsService,
	logger logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, logger),
		Stage:    NewStageHandler(documentService, logger),
		Settings: NewSettingsHandler(settingsService, logger),
	}
}
