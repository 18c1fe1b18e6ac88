package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tessella/tessella-backend/internal/data/repos"
	types "github.com/tessella/tessella-backend/internal/domain"
	"github.com/tessella/tessella-backend/internal/platform/dbctx"
)

// Context is the execution handle for one claimed document run. It wraps
// the run row, the repo that persists lifecycle transitions, and the only
// sanctioned ways to report progress or terminate execution. Handlers never
// write document_run fields directly.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Run     *types.DocumentRun
	Repo    repos.DocumentRunRepo
	payload map[string]any
}

// NewContext eagerly decodes the run payload so handlers can read inputs
// via Payload()/PayloadUUID(). A malformed payload decodes to an empty map;
// handlers validate required fields themselves.
func NewContext(ctx context.Context, db *gorm.DB, run *types.DocumentRun, repo repos.DocumentRunRepo) *Context {
	c := &Context{
		Ctx:  ctx,
		DB:   db,
		Run:  run,
		Repo: repo,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Run == nil {
		return nil
	}
	if len(c.Run.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Run.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadUUID reads a payload field and parses it as a UUID, returning
// (uuid.Nil, false) when missing or malformed.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	s, ok := v.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// PayloadString reads a payload field as a string, empty when absent.
func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// PayloadBool reads a payload field as a bool, false when absent.
func (c *Context) PayloadBool(key string) bool {
	v, ok := c.Payload()[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Progress persists a non-terminal state update, guarded so canceled runs
// are never overwritten.
func (c *Context) Progress(state string, pct int, msg string) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()

	if c.Repo != nil && c.Run != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Run.ID, []string{types.RunStatusCanceled}, map[string]interface{}{
			"state":        state,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Run != nil {
		c.Run.State = state
		c.Run.Progress = pct
		c.Run.Message = msg
		c.Run.HeartbeatAt = &now
		c.Run.UpdatedAt = now
	}
}

// Fail marks the run terminally failed with a reason, clears the lock, and
// keeps any already-persisted promotions in place.
func (c *Context) Fail(state string, reason string, err error) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if c.Repo != nil && c.Run != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Run.ID, []string{types.RunStatusCanceled}, map[string]interface{}{
			"status":        types.RunStatusFailed,
			"state":         state,
			"message":       "",
			"reason":        reason,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}

	if c.Run != nil {
		c.Run.Status = types.RunStatusFailed
		c.Run.State = state
		c.Run.Message = ""
		c.Run.Reason = reason
		c.Run.Error = msg
		c.Run.LastErrorAt = &now
		c.Run.LockedAt = nil
		c.Run.UpdatedAt = now
	}
}

// Succeed marks the run terminally succeeded and stores the result (the
// terminal counts) on the row.
func (c *Context) Succeed(result any) {
	if c == nil {
		return
	}
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}

	if c.Repo != nil && c.Run != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx}, c.Run.ID, []string{types.RunStatusCanceled}, map[string]interface{}{
			"status":       types.RunStatusSucceeded,
			"state":        types.StateDone,
			"progress":     100,
			"message":      "",
			"error":        "",
			"reason":       "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}

	if c.Run != nil {
		c.Run.Status = types.RunStatusSucceeded
		c.Run.State = types.StateDone
		c.Run.Progress = 100
		c.Run.Message = ""
		c.Run.Error = ""
		c.Run.Reason = ""
		c.Run.Result = res
		c.Run.LockedAt = nil
		c.Run.HeartbeatAt = &now
		c.Run.UpdatedAt = now
	}
}
