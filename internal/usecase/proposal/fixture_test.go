package proposal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/infrastructure/memory"
	"github.com/ignatzorin/research-review/internal/usecase/evaluator"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events []entity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) Types() []entity.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]entity.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

// interleavingProposals выполняет after сразу после очередной загрузки заявки,
// то есть между чтением снимка и его сохранением.
type interleavingProposals struct {
	repository.ProposalRepository
	mu    sync.Mutex
	after func()
}

func (r *interleavingProposals) interleave(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = fn
}

func (r *interleavingProposals) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	p, err := r.ProposalRepository.FindByID(ctx, id)
	r.mu.Lock()
	fn := r.after
	r.after = nil
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
	return p, err
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	proposals *interleavingProposals
	clock     *testClock
	publisher *recordingPublisher
	uc        *proposal.UseCases
	directory *evaluator.DirectoryUseCase

	proponent entity.Actor
	rnd       entity.Actor
	committee entity.Actor
	funding   entity.Actor
	admin     entity.Actor
}

var day = 24 * time.Hour

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	publisher := &recordingPublisher{}
	revisions, err := domainsvc.NewRevisionManager(nil, "")
	require.NoError(t, err)
	proposals := &interleavingProposals{ProposalRepository: store.Proposals()}

	return &fixture{
		ctx:       context.Background(),
		store:     store,
		proposals: proposals,
		clock:     clock,
		publisher: publisher,
		uc: proposal.NewUseCases(proposal.Dependencies{
			Proposals:  proposals,
			Evaluators: store.Evaluators(),
			Publisher:  publisher,
			Clock:      clock.Now,
			Revisions:  revisions,
			Engine:     domainsvc.NewAssignmentEngine(domainsvc.DefaultAssignmentPolicy()),
		}),
		directory: evaluator.NewDirectoryUseCase(store.Evaluators(), clock.Now),
		proponent: entity.Actor{ID: uuid.New(), Role: valueobject.RoleProponent},
		rnd:       entity.Actor{ID: uuid.New(), Role: valueobject.RoleRnDStaff},
		committee: entity.Actor{ID: uuid.New(), Role: valueobject.RoleCommittee},
		funding:   entity.Actor{ID: uuid.New(), Role: valueobject.RoleFundingAuthority},
		admin:     entity.Actor{ID: uuid.New(), Role: valueobject.RoleAdmin},
	}
}

func (f *fixture) submit(t *testing.T) *entity.Proposal {
	t.Helper()
	res, err := f.uc.Create.Execute(f.ctx, f.proponent, proposal.CreateProposalInput{
		Title:       "Мониторинг качества воды",
		Department:  "science",
		DocumentRef: "documents/proposal-v1.pdf",
		BudgetLines: []domainsvc.BudgetLineInput{{Source: "GAA", PS: 120000, MOOE: 80000, CO: 0}},
	})
	require.NoError(t, err)
	return res.Proposal
}

func (f *fixture) decide(t *testing.T, id uuid.UUID, actor entity.Actor, gate valueobject.Gate, kind valueobject.DecisionKind) *entity.Proposal {
	t.Helper()
	res, err := f.uc.Decide.Execute(f.ctx, actor, proposal.RecordDecisionInput{
		ProposalID:         id,
		Gate:               gate,
		Decision:           kind,
		Remarks:            "решение принято",
		FundingDocumentRef: "documents/funding-order.pdf",
	})
	require.NoError(t, err)
	return res.Proposal
}

func (f *fixture) evaluators(t *testing.T, n int) []entity.Actor {
	t.Helper()
	actors := make([]entity.Actor, 0, n)
	for i := 0; i < n; i++ {
		ev, err := f.directory.Register(f.ctx, f.rnd, evaluator.EvaluatorInput{
			ID:          uuid.New(),
			Name:        "Эксперт",
			Department:  "science",
			Specialties: []string{"hydrology"},
			MaxWorkload: 2,
		})
		require.NoError(t, err)
		actors = append(actors, entity.Actor{ID: ev.ID, Role: valueobject.RoleEvaluator})
	}
	return actors
}

// underEvaluation доводит заявку до оценки с принятыми назначениями.
func (f *fixture) underEvaluation(t *testing.T, evaluators []entity.Actor) *entity.Proposal {
	t.Helper()
	p := f.submit(t)
	f.decide(t, p.ID, f.rnd, valueobject.GateRnD, valueobject.DecisionEndorse)
	ids := make([]uuid.UUID, 0, len(evaluators))
	for _, ev := range evaluators {
		ids = append(ids, ev.ID)
	}
	res, err := f.uc.Assign.Execute(f.ctx, f.rnd, proposal.AssignEvaluatorsInput{ProposalID: p.ID, Department: "science", EvaluatorIDs: ids})
	require.NoError(t, err)
	for _, ev := range evaluators {
		f.respond(t, res.Proposal, ev, valueobject.AssignmentResponseAccept)
	}
	return f.reload(t, p.ID)
}

func (f *fixture) respond(t *testing.T, p *entity.Proposal, ev entity.Actor, response valueobject.AssignmentResponse) *entity.Proposal {
	t.Helper()
	a := p.ActiveAssignmentFor(ev.ID)
	require.NotNil(t, a)
	res, err := f.uc.Respond.Execute(f.ctx, ev, proposal.RespondAssignmentInput{ProposalID: p.ID, AssignmentID: a.ID, Response: response})
	require.NoError(t, err)
	return res.Proposal
}

func (f *fixture) rate(t *testing.T, id uuid.UUID, ev entity.Actor, decision valueobject.SuggestedDecision) *proposal.Result {
	t.Helper()
	res, err := f.uc.Rate.Execute(f.ctx, ev, ratingInput(id, decision))
	require.NoError(t, err)
	return res
}

func ratingInput(id uuid.UUID, decision valueobject.SuggestedDecision) proposal.RecordRatingInput {
	return proposal.RecordRatingInput{
		ProposalID:        id,
		Scores:            entity.RatingScores{Objectives: 4, Methodology: 4, Budget: 3, Timeline: 5},
		Comment:           "методика обоснована",
		SuggestedDecision: decision,
	}
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *entity.Proposal {
	t.Helper()
	p, err := f.store.Proposals().FindByID(f.ctx, id)
	require.NoError(t, err)
	return p
}

func proposalFilter() repository.ProposalFilter {
	return repository.ProposalFilter{Limit: 50}
}
