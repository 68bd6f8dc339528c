package orchestrator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/robfig/cron/v3"
	"github.com/taskhive/taskhive/core/knowledge"
	"github.com/taskhive/taskhive/core/pool"
	"github.com/taskhive/taskhive/core/queue"
	"github.com/taskhive/taskhive/core/sse"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/core/usercontext"
	"github.com/taskhive/taskhive/pkg/llm"
)

// DefaultSchedule is the polling interval when none is configured.
const DefaultSchedule = "1s"

// Rand is the injectable randomness source behind the curiosity
// policy. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Orchestrator is the periodic actor that sequences
// dequeue -> select -> enrich -> process -> notify.
type Orchestrator struct {
	queue    queue.Store
	pool     *pool.AgentPool
	contexts *usercontext.Builder
	seeker   *knowledge.Seeker
	memory   *knowledge.VectorMemory
	client   llm.Client
	model    string
	hub      sse.Hub
	rand     Rand
	schedule string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Orchestrator)

// WithRand injects the randomness source used by the curiosity policy,
// so tests can force both branches deterministically.
func WithRand(r Rand) Option {
	return func(o *Orchestrator) {
		o.rand = r
	}
}

// WithSchedule sets the tick schedule: either a Go duration ("1s") or
// a cron expression with seconds ("*/5 * * * * *").
func WithSchedule(schedule string) Option {
	return func(o *Orchestrator) {
		o.schedule = schedule
	}
}

// WithVectorMemory enables long-term recall over synthesized knowledge.
func WithVectorMemory(memory *knowledge.VectorMemory) Option {
	return func(o *Orchestrator) {
		o.memory = memory
	}
}

func New(
	store queue.Store,
	agents *pool.AgentPool,
	contexts *usercontext.Builder,
	seeker *knowledge.Seeker,
	client llm.Client,
	model string,
	hub sse.Hub,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		queue:    store,
		pool:     agents,
		contexts: contexts,
		seeker:   seeker,
		client:   client,
		model:    model,
		hub:      hub,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		schedule: DefaultSchedule,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitTask enqueues and persists a pending task for the user and
// returns its ID immediately, without waiting for processing.
func (o *Orchestrator) SubmitTask(userID, prompt string, taskContext map[string]interface{}, priority int) (string, error) {
	task := types.NewTask(userID, prompt, taskContext, priority)
	if err := o.queue.Enqueue(task); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	xlog.Info("Task submitted", "task", task.ID, "user", userID)
	return task.ID, nil
}

// Task retrieves a task record. Pure read against the task store.
func (o *Orchestrator) Task(id string) (*types.Task, error) {
	return o.queue.Get(id)
}

// UserTasks retrieves a user's task history, newest first.
func (o *Orchestrator) UserTasks(userID string) ([]*types.Task, error) {
	return o.queue.GetByUser(userID)
}

// AgentStatuses returns a point-in-time snapshot of the agent pool.
func (o *Orchestrator) AgentStatuses() []pool.AgentSnapshot {
	return o.pool.Statuses()
}

// Start begins the polling loop.
func (o *Orchestrator) Start() {
	if o.ctx != nil {
		xlog.Warn("Orchestrator already started")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.ctx = ctx
	o.cancel = cancel
	o.wg.Add(1)
	go o.run()
	xlog.Info("Orchestrator started", "schedule", o.schedule)
}

// Stop gracefully stops the polling loop.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	xlog.Info("Orchestrator stopped")
	o.cancel = nil
	o.ctx = nil
}

// run drives ticks on the configured schedule. Tick failures are
// logged per cycle; the loop never terminates on them.
func (o *Orchestrator) run() {
	defer o.wg.Done()

	if interval, err := time.ParseDuration(o.schedule); err == nil {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-o.ctx.Done():
				return
			case <-ticker.C:
				o.Tick(o.ctx)
			}
		}
	}

	// Not a duration: treat the schedule as a cron expression.
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(o.schedule)
	if err != nil {
		xlog.Error("Invalid schedule, falling back to default", "schedule", o.schedule, "error", err)
		interval, _ := time.ParseDuration(DefaultSchedule)
		schedule = cron.Every(interval)
	}

	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-o.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			o.Tick(o.ctx)
		}
	}
}

// Tick runs one processing cycle: dequeue at most one task and drive
// it through selection, enrichment, processing and notification.
// Exported so tests can drive cycles without wall-clock waits.
func (o *Orchestrator) Tick(ctx context.Context) {
	task, err := o.queue.Dequeue()
	if err != nil {
		xlog.Error("Failed to dequeue task", "error", err)
		return
	}
	if task == nil {
		return
	}

	agent, err := o.pool.SelectAgent(task)
	if err != nil {
		// Transient resource exhaustion: put the task back untouched
		// so a later tick picks it up. Not surfaced to the user.
		if rqErr := o.queue.Requeue(task); rqErr != nil {
			xlog.Error("Failed to requeue task", "task", task.ID, "error", rqErr)
		}
		xlog.Debug("No agent available, task deferred", "task", task.ID)
		return
	}

	defer o.pool.Release(agent.ID)

	if err := o.process(ctx, task, agent); err != nil {
		xlog.Error("Task processing failed",
			"task", task.ID,
			"user", task.UserID,
			"agent", agent.ID,
			"error", err,
		)

		task.Status = types.TaskStatusFailed
		task.Error = err.Error()
		if uerr := o.queue.Update(task); uerr != nil {
			xlog.Error("Failed to persist failed task", "task", task.ID, "error", uerr)
		}

		o.hub.Publish(task.UserID, sse.NewTaskError(task.ID, err.Error()))
	}
}
