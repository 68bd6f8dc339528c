package usercontext

import (
	"fmt"
	"time"

	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/xstrings"
)

// Builder assembles and maintains per-user contexts on top of a Store.
type Builder struct {
	store Store
}

func NewBuilder(store Store) *Builder {
	return &Builder{store: store}
}

// BuildContext returns the stored context for a user, or an empty
// default when the user has no history.
func (b *Builder) BuildContext(userID, prompt string) (*types.UserContext, error) {
	context, err := b.store.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read context for user %s: %w", userID, err)
	}
	if context == nil {
		return &types.UserContext{
			UserID: userID,
			Data:   make(map[string]interface{}),
		}, nil
	}
	if context.Data == nil {
		context.Data = make(map[string]interface{})
	}
	return context, nil
}

// UpdateUserContext unions newly observed interests into the stored
// set and increments the interaction count. Interests are never
// removed and the count never decreases.
func (b *Builder) UpdateUserContext(userID string, interests []string, data map[string]interface{}) error {
	context, err := b.store.Get(userID)
	if err != nil {
		return fmt.Errorf("failed to read context for user %s: %w", userID, err)
	}
	if context == nil {
		context = &types.UserContext{
			UserID: userID,
			Data:   make(map[string]interface{}),
		}
	}
	if context.Data == nil {
		context.Data = make(map[string]interface{})
	}

	context.Interests = xstrings.UniqueSlice(append(context.Interests, interests...))
	context.Interactions++
	context.LastSeen = time.Now()
	for k, v := range data {
		context.Data[k] = v
	}

	return b.store.Put(context)
}
