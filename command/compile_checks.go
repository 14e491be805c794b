package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shelf/core"
)

var (
	_ gocmd.Commander[SaveEntityMessage]    = (*SaveEntityCommand)(nil)
	_ gocmd.Commander[DestroyEntityMessage] = (*DestroyEntityCommand)(nil)

	_ EntityWriter = (*core.Handle)(nil)
)
