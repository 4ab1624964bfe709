package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/lending-engine/lending"
)

// =============================================================================
// TASK STORE
// =============================================================================

var _ lending.TaskInstanceRepository = (*Store)(nil)

// SaveTaskDefinition creates or replaces a product's task definition.
func (s *Store) SaveTaskDefinition(ctx context.Context, productIdentifier string, def lending.TaskDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actionsJSON, err := json.Marshal(def.Actions)
	if err != nil {
		return fmt.Errorf("failed to encode task actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_definitions (product_id, identifier, name, description, actions_json, four_eyes, mandatory)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, identifier) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			actions_json = excluded.actions_json,
			four_eyes = excluded.four_eyes,
			mandatory = excluded.mandatory
	`, productIdentifier, def.Identifier, def.Name, def.Description, string(actionsJSON), def.FourEyes, def.Mandatory)
	if err != nil {
		return fmt.Errorf("failed to save task definition: %w", err)
	}
	return nil
}

// SaveTaskInstance creates or replaces a case's instance of a task.
func (s *Store) SaveTaskInstance(ctx context.Context, productIdentifier, caseIdentifier string, task lending.TaskInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var executedOn sql.NullString
	if task.ExecutedOn != nil {
		executedOn = sql.NullString{String: formatTime(*task.ExecutedOn), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_instances (product_id, case_id, task_id, comment, executed_on, executed_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, case_id, task_id) DO UPDATE SET
			comment = excluded.comment,
			executed_on = excluded.executed_on,
			executed_by = excluded.executed_by
	`, productIdentifier, caseIdentifier, task.TaskIdentifier, task.Comment, executedOn, nullString(task.ExecutedBy))
	if err != nil {
		return fmt.Errorf("failed to save task instance: %w", err)
	}
	return nil
}

func (s *Store) FindTaskInstances(ctx context.Context, productIdentifier, caseIdentifier string, includeExecuted bool) ([]lending.TaskInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT task_id, comment, executed_on, executed_by
		FROM task_instances
		WHERE product_id = ? AND case_id = ?
	`
	if !includeExecuted {
		query += " AND executed_on IS NULL"
	}
	query += " ORDER BY task_id ASC"

	rows, err := s.db.QueryContext(ctx, query, productIdentifier, caseIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query task instances: %w", err)
	}
	defer rows.Close()

	var tasks []lending.TaskInstance
	for rows.Next() {
		task, err := scanTaskInstance(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

func (s *Store) FindTaskInstance(ctx context.Context, productIdentifier, caseIdentifier, taskIdentifier string) (lending.TaskInstance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, comment, executed_on, executed_by
		FROM task_instances
		WHERE product_id = ? AND case_id = ? AND task_id = ?
	`, productIdentifier, caseIdentifier, taskIdentifier)
	if err != nil {
		return lending.TaskInstance{}, false, fmt.Errorf("failed to query task instance: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return lending.TaskInstance{}, false, rows.Err()
	}
	task, err := scanTaskInstance(rows)
	if err != nil {
		return lending.TaskInstance{}, false, err
	}
	return task, true, nil
}

// AreTasksOutstanding reports whether a mandatory, unexecuted task of the
// case lists action.
func (s *Store) AreTasksOutstanding(ctx context.Context, productIdentifier, caseIdentifier string, action lending.Action) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT td.actions_json
		FROM task_instances ti
		JOIN task_definitions td ON td.product_id = ti.product_id AND td.identifier = ti.task_id
		WHERE ti.product_id = ? AND ti.case_id = ? AND ti.executed_on IS NULL AND td.mandatory
	`, productIdentifier, caseIdentifier)
	if err != nil {
		return false, fmt.Errorf("failed to query outstanding tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actionsJSON string
		if err := rows.Scan(&actionsJSON); err != nil {
			return false, fmt.Errorf("failed to scan task actions: %w", err)
		}
		var actions []lending.Action
		if err := json.Unmarshal([]byte(actionsJSON), &actions); err != nil {
			return false, fmt.Errorf("invalid task_definitions.actions_json: %w", err)
		}
		for _, a := range actions {
			if a == action {
				return true, nil
			}
		}
	}
	return false, rows.Err()
}

func scanTaskInstance(rows *sql.Rows) (lending.TaskInstance, error) {
	var (
		task       lending.TaskInstance
		executedOn sql.NullString
		executedBy sql.NullString
	)

	if err := rows.Scan(&task.TaskIdentifier, &task.Comment, &executedOn, &executedBy); err != nil {
		return task, fmt.Errorf("failed to scan task instance: %w", err)
	}
	if executedOn.Valid {
		t, err := parseTime(executedOn.String)
		if err != nil {
			return task, errors.Join(errors.New("invalid task_instances.executed_on"), err)
		}
		task.ExecutedOn = &t
	}
	task.ExecutedBy = executedBy.String
	return task, nil
}
