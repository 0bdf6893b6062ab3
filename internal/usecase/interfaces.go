package usecase

import (
	"context"
	"errors"
)

var ErrInvalidRecipient = errors.New("invalid recipient")

// ViewSession is the part of the chat view that follows the signed-in user.
type ViewSession interface {
	SetCurrentUser(ctx context.Context, userID int64) error
	Deactivate(ctx context.Context) error
}
