package lending

import (
	"context"
	"time"
)

// =============================================================================
// TASKS - Checklist items that gate loan actions
// =============================================================================

// TaskDefinition is a product-level checklist item. A mandatory task that
// lists an action must be executed before that action may run.
type TaskDefinition struct {
	Identifier  string
	Name        string
	Description string
	Actions     []Action
	FourEyes    bool
	Mandatory   bool
}

// TaskInstance is a task definition instantiated for one case.
type TaskInstance struct {
	TaskIdentifier string
	Comment        string
	ExecutedOn     *time.Time
	ExecutedBy     string
}

func (t TaskInstance) Executed() bool {
	return t.ExecutedOn != nil
}

type TaskInstanceRepository interface {
	FindTaskInstances(ctx context.Context, productIdentifier, caseIdentifier string, includeExecuted bool) ([]TaskInstance, error)
	FindTaskInstance(ctx context.Context, productIdentifier, caseIdentifier, taskIdentifier string) (TaskInstance, bool, error)

	// AreTasksOutstanding reports whether any mandatory task listing action
	// has not been executed for the case.
	AreTasksOutstanding(ctx context.Context, productIdentifier, caseIdentifier string, action Action) (bool, error)
}

// TaskInstanceService is the query surface over a case's tasks.
type TaskInstanceService struct {
	repo TaskInstanceRepository
}

func NewTaskInstanceService(repo TaskInstanceRepository) *TaskInstanceService {
	return &TaskInstanceService{repo: repo}
}

func (s *TaskInstanceService) FindAllEntities(ctx context.Context, productIdentifier, caseIdentifier string, includeExecuted bool) ([]TaskInstance, error) {
	return s.repo.FindTaskInstances(ctx, productIdentifier, caseIdentifier, includeExecuted)
}

func (s *TaskInstanceService) FindByIdentifier(ctx context.Context, productIdentifier, caseIdentifier, taskIdentifier string) (*TaskInstance, bool, error) {
	task, ok, err := s.repo.FindTaskInstance(ctx, productIdentifier, caseIdentifier, taskIdentifier)
	if err != nil || !ok {
		return nil, false, err
	}
	return &task, true, nil
}

func (s *TaskInstanceService) AreTasksOutstanding(ctx context.Context, productIdentifier, caseIdentifier string, action Action) (bool, error) {
	return s.repo.AreTasksOutstanding(ctx, productIdentifier, caseIdentifier, action)
}
