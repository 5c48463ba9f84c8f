package chat

import (
	"context"
	"fmt"

	"github.com/futig/omnistudy/internal/entity"
	"github.com/futig/omnistudy/internal/pkg/formatter"
	"github.com/futig/omnistudy/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ExportedFile is a rendered message ready for download
type ExportedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportMessage renders an assistant message as markdown, pdf or docx
func (uc *ChatUsecase) ExportMessage(
	ctx context.Context, conversationID, messageID string, format entity.ExportFormat,
) (*ExportedFile, error) {
	msg, err := uc.Message(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, err
	}

	doc := formatter.FromMessage(msg)
	content, err := f.Format(doc)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", format, err)
	}

	ctxzap.Info(ctx, "message exported",
		zap.String("message_id", messageID),
		zap.String("format", string(format)),
		zap.Int("size", len(content)),
	)

	return &ExportedFile{
		Filename:    validator.SanitizeFilename(doc.Title) + f.FileExtension(),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}
