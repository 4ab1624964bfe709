package lending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/lending"
)

// memoryTasks holds one case's tasks and the definitions they come from.
type memoryTasks struct {
	definitions map[string]lending.TaskDefinition
	instances   []lending.TaskInstance
}

func (m *memoryTasks) FindTaskInstances(_ context.Context, _, _ string, includeExecuted bool) ([]lending.TaskInstance, error) {
	var out []lending.TaskInstance
	for _, t := range m.instances {
		if includeExecuted || !t.Executed() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTasks) FindTaskInstance(_ context.Context, _, _, taskIdentifier string) (lending.TaskInstance, bool, error) {
	for _, t := range m.instances {
		if t.TaskIdentifier == taskIdentifier {
			return t, true, nil
		}
	}
	return lending.TaskInstance{}, false, nil
}

func (m *memoryTasks) AreTasksOutstanding(_ context.Context, _, _ string, action lending.Action) (bool, error) {
	for _, t := range m.instances {
		def := m.definitions[t.TaskIdentifier]
		if t.Executed() || !def.Mandatory {
			continue
		}
		for _, a := range def.Actions {
			if a == action {
				return true, nil
			}
		}
	}
	return false, nil
}

func newTaskFixture() *memoryTasks {
	executed := time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC)
	return &memoryTasks{
		definitions: map[string]lending.TaskDefinition{
			"verify-id":     {Identifier: "verify-id", Actions: []lending.Action{lending.ActionApprove}, Mandatory: true},
			"sign-contract": {Identifier: "sign-contract", Actions: []lending.Action{lending.ActionDisburse}, Mandatory: true},
			"welcome-call":  {Identifier: "welcome-call", Actions: []lending.Action{lending.ActionDisburse}},
		},
		instances: []lending.TaskInstance{
			{TaskIdentifier: "verify-id", ExecutedOn: &executed, ExecutedBy: "bob"},
			{TaskIdentifier: "sign-contract"},
			{TaskIdentifier: "welcome-call"},
		},
	}
}

func TestTaskInstanceService_FindAllEntities(t *testing.T) {
	ctx := context.Background()
	svc := lending.NewTaskInstanceService(newTaskFixture())

	all, err := svc.FindAllEntities(ctx, "loan-1", "case-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	open, err := svc.FindAllEntities(ctx, "loan-1", "case-1", false)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestTaskInstanceService_FindByIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := lending.NewTaskInstanceService(newTaskFixture())

	task, ok, err := svc.FindByIdentifier(ctx, "loan-1", "case-1", "verify-id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, task.Executed())
	assert.Equal(t, "bob", task.ExecutedBy)

	task, ok, err = svc.FindByIdentifier(ctx, "loan-1", "case-1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, task)
}

func TestTaskInstanceService_AreTasksOutstanding(t *testing.T) {
	// GIVEN: verify-id (APPROVE) executed, sign-contract (DISBURSE, mandatory)
	//        open, welcome-call (DISBURSE, optional) open
	// THEN: DISBURSE is blocked, APPROVE is not

	ctx := context.Background()
	svc := lending.NewTaskInstanceService(newTaskFixture())

	blocked, err := svc.AreTasksOutstanding(ctx, "loan-1", "case-1", lending.ActionDisburse)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = svc.AreTasksOutstanding(ctx, "loan-1", "case-1", lending.ActionApprove)
	require.NoError(t, err)
	assert.False(t, blocked)
}
