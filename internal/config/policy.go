package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
)

// WorkflowPolicy: настраиваемые сроки процесса рассмотрения.
type WorkflowPolicy struct {
	RevisionWindows       []RevisionWindowPolicy `yaml:"revision_windows"`
	DefaultRevisionWindow string                 `yaml:"default_revision_window"`
	AssignmentResponseSLA time.Duration          `yaml:"assignment_response_sla"`
	EvaluationDueDays     int                    `yaml:"evaluation_due_days"`
	MaxEvaluationDueDays  int                    `yaml:"max_evaluation_due_days"`
}

type RevisionWindowPolicy struct {
	Name string `yaml:"name"`
	Days int    `yaml:"days"`
}

func DefaultWorkflowPolicy() WorkflowPolicy {
	policy := WorkflowPolicy{
		DefaultRevisionWindow: valueobject.DefaultRevisionWindowName,
		AssignmentResponseSLA: 72 * time.Hour,
		EvaluationDueDays:     14,
		MaxEvaluationDueDays:  90,
	}
	for _, w := range valueobject.DefaultRevisionWindows() {
		policy.RevisionWindows = append(policy.RevisionWindows, RevisionWindowPolicy{Name: w.Name, Days: w.Days})
	}
	return policy
}

// LoadWorkflowPolicy читает YAML поверх значений по умолчанию.
// Пустой путь возвращает политику по умолчанию.
func LoadWorkflowPolicy(path string) (WorkflowPolicy, error) {
	policy := DefaultWorkflowPolicy()
	if path == "" {
		return policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return WorkflowPolicy{}, fmt.Errorf("config: не удалось прочитать политику %s: %w", path, err)
	}
	return ParseWorkflowPolicy(data)
}

func ParseWorkflowPolicy(data []byte) (WorkflowPolicy, error) {
	policy := DefaultWorkflowPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return WorkflowPolicy{}, fmt.Errorf("config: некорректный YAML политики: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return WorkflowPolicy{}, err
	}
	return policy, nil
}

func (p WorkflowPolicy) Validate() error {
	if p.AssignmentResponseSLA <= 0 {
		return fmt.Errorf("config: assignment_response_sla должен быть положительным")
	}
	if p.MaxEvaluationDueDays < 1 || p.MaxEvaluationDueDays > 90 {
		return fmt.Errorf("config: max_evaluation_due_days должен быть от 1 до 90")
	}
	if p.EvaluationDueDays < 1 || p.EvaluationDueDays > p.MaxEvaluationDueDays {
		return fmt.Errorf("config: evaluation_due_days должен быть от 1 до %d", p.MaxEvaluationDueDays)
	}
	_, err := p.RevisionManager()
	return err
}

func (p WorkflowPolicy) RevisionManager() (*domainsvc.RevisionManager, error) {
	windows := make([]valueobject.RevisionWindow, 0, len(p.RevisionWindows))
	for _, w := range p.RevisionWindows {
		windows = append(windows, valueobject.RevisionWindow{Name: w.Name, Days: w.Days})
	}
	m, err := domainsvc.NewRevisionManager(windows, p.DefaultRevisionWindow)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return m, nil
}

func (p WorkflowPolicy) AssignmentPolicy() domainsvc.AssignmentPolicy {
	return domainsvc.AssignmentPolicy{
		ResponseSLA:    p.AssignmentResponseSLA,
		DefaultDueDays: p.EvaluationDueDays,
		MaxDueDays:     p.MaxEvaluationDueDays,
	}
}
