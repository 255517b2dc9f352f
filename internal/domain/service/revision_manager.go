package service

import (
	"strings"
	"time"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/pkg/apperror"
)

// RevisionManager открывает окна доработки, принимает повторную подачу
// и закрывает просроченные доработки.
type RevisionManager struct {
	windows     []valueobject.RevisionWindow
	byName      map[string]valueobject.RevisionWindow
	defaultName string
}

func NewRevisionManager(windows []valueobject.RevisionWindow, defaultName string) (*RevisionManager, error) {
	if len(windows) == 0 {
		windows = valueobject.DefaultRevisionWindows()
	}
	if defaultName == "" {
		defaultName = valueobject.DefaultRevisionWindowName
	}
	m := &RevisionManager{byName: make(map[string]valueobject.RevisionWindow, len(windows)), defaultName: defaultName}
	for _, w := range windows {
		w, err := valueobject.NewRevisionWindow(w.Name, w.Days)
		if err != nil {
			return nil, err
		}
		if _, ok := m.byName[w.Name]; ok {
			return nil, apperror.Newf(apperror.ErrCodeValidation, "срок доработки %q указан повторно", w.Name)
		}
		m.byName[w.Name] = w
		m.windows = append(m.windows, w)
	}
	if _, ok := m.byName[defaultName]; !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "срок доработки по умолчанию %q не найден", defaultName)
	}
	return m, nil
}

// Deadline переводит именованный срок в абсолютный крайний срок.
// Пустое имя означает срок по умолчанию.
func (m *RevisionManager) Deadline(option string, now time.Time) (time.Time, valueobject.RevisionWindow, error) {
	option = strings.TrimSpace(option)
	if option == "" {
		option = m.defaultName
	}
	w, ok := m.byName[option]
	if !ok {
		return time.Time{}, valueobject.RevisionWindow{}, apperror.Newf(apperror.ErrCodeValidation, "неизвестный срок доработки %q", option)
	}
	return now.Add(w.Duration()), w, nil
}

func (m *RevisionManager) Open(p *entity.Proposal, origin valueobject.Gate, option string, actor entity.Actor, now time.Time) (time.Time, error) {
	deadline, w, err := m.Deadline(option, now)
	if err != nil {
		return time.Time{}, err
	}
	if err := p.OpenRevision(origin, deadline, w.Name, actor, now); err != nil {
		return time.Time{}, err
	}
	return deadline, nil
}

type ResubmitInput struct {
	BudgetLines      []BudgetLineInput
	DocumentRef      string
	RevisionResponse *string
}

// Resubmit проверяет срок до проверки содержимого: просроченная подача
// отклоняется REVISION_WINDOW_EXPIRED независимо от данных.
func (m *RevisionManager) Resubmit(p *entity.Proposal, in ResubmitInput, actor entity.Actor, now time.Time) error {
	if !p.IsOwnedBy(actor.ID) {
		return apperror.ErrForbidden
	}
	if !p.Status.IsRevision() {
		return apperror.Newf(apperror.ErrCodeInvalidTransition, "повторная подача недоступна в статусе %s", p.Status)
	}
	if p.RevisionExpired(now) {
		return apperror.ErrRevisionExpired
	}
	lines, err := BuildBudgetLines(in.BudgetLines)
	if err != nil {
		return err
	}
	var response *string
	if in.RevisionResponse != nil {
		trimmed := strings.TrimSpace(*in.RevisionResponse)
		if trimmed != "" {
			response = &trimmed
		}
	}
	return p.Resubmit(entity.DocumentVersion{
		DocumentRef:      strings.TrimSpace(in.DocumentRef),
		RevisionResponse: response,
		BudgetLines:      lines,
	}, actor, now)
}

func (m *RevisionManager) Expire(p *entity.Proposal, now time.Time) (bool, error) {
	return p.ExpireRevision(now)
}
