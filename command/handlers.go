package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shelf/naming"
)

// EntityWriter is implemented by *core.Handle.
type EntityWriter interface {
	Save(ctx context.Context, model string, attrs naming.Attributes) (naming.Attributes, error)
	Destroy(ctx context.Context, model string, id any) error
}

type SaveEntityCommand struct {
	writer EntityWriter
}

func NewSaveEntityCommand(writer EntityWriter) *SaveEntityCommand {
	return &SaveEntityCommand{writer: writer}
}

func (c *SaveEntityCommand) Execute(ctx context.Context, msg SaveEntityMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: entity writer is required")
	}
	out, err := c.writer.Save(ctx, msg.Model, msg.Attributes)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DestroyEntityCommand struct {
	writer EntityWriter
}

func NewDestroyEntityCommand(writer EntityWriter) *DestroyEntityCommand {
	return &DestroyEntityCommand{writer: writer}
}

func (c *DestroyEntityCommand) Execute(ctx context.Context, msg DestroyEntityMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: entity writer is required")
	}
	return c.writer.Destroy(ctx, msg.Model, msg.ID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
