package session

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"trolley/internal/identity"
	"trolley/internal/platform/logger"
	"trolley/internal/platform/metrics"
	"trolley/internal/platform/storage"
	storagemocks "trolley/internal/platform/storage/mocks"
	"trolley/internal/provider"
	providermocks "trolley/internal/provider/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ManagerSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	kv       *storage.Memory
	tokens   *providermocks.MockTokenProvider
	identity *identity.Store
	manager  *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.kv = storage.NewMemory()
	s.tokens = providermocks.NewMockTokenProvider(s.ctrl)
	log := logger.New()
	s.identity = identity.New(s.kv, log)
	s.manager = NewManager(s.kv, s.identity, s.tokens, metrics.New(prometheus.NewRegistry()), log)
}

func (s *ManagerSuite) TestGetOrCreateIsIdempotent() {
	first := s.manager.GetOrCreate(s.ctx, "alice", "store-1")
	second := s.manager.GetOrCreate(s.ctx, "alice", "store-1")
	s.Equal(first, second)
	s.NotEmpty(first)
}

func (s *ManagerSuite) TestDistinctSlotsGetDistinctIDs() {
	a := s.manager.GetOrCreate(s.ctx, "alice", "store-1")
	b := s.manager.GetOrCreate(s.ctx, "alice", "store-2")
	c := s.manager.GetOrCreate(s.ctx, "bob", "store-1")
	d := s.manager.GetOrCreate(s.ctx, "alice", "")
	s.NotEqual(a, b)
	s.NotEqual(a, c)
	s.NotEqual(a, d)
}

func (s *ManagerSuite) TestClearRotatesID() {
	before := s.manager.GetOrCreate(s.ctx, "alice", "store-1")
	s.manager.Clear(s.ctx, "alice", "store-1")
	after := s.manager.GetOrCreate(s.ctx, "alice", "store-1")
	s.NotEqual(before, after)
}

func (s *ManagerSuite) TestClearCurrentUsesActiveIdentityAndStore() {
	s.identity.SetSelectedStore(s.ctx, "alice", "store-1")
	id := s.manager.GetOrCreate(s.ctx, "alice", "store-1")

	s.tokens.EXPECT().Current(gomock.Any()).Return(&provider.Session{UserID: "alice", AccessToken: "t"}, nil)
	s.manager.ClearCurrent(s.ctx)

	s.NotEqual(id, s.manager.GetOrCreate(s.ctx, "alice", "store-1"))
}

func (s *ManagerSuite) TestClearCurrentNoopsWhenSignedOut() {
	s.tokens.EXPECT().Current(gomock.Any()).Return(nil, nil)
	s.NotPanics(func() { s.manager.ClearCurrent(s.ctx) })
}

func (s *ManagerSuite) TestRecheckBeforeWriteWins() {
	// A value appearing between generation and the write must win over the
	// freshly generated id.
	kv := storagemocks.NewMockKV(s.ctrl)
	manager := NewManager(kv, s.identity, s.tokens, metrics.New(prometheus.NewRegistry()), logger.New(),
		WithIDGenerator(func() string { return "generated-id" }))

	key := identity.SessionKey("alice", "store-1")
	gomock.InOrder(
		kv.EXPECT().Get(gomock.Any(), key).Return("", false, nil),
		kv.EXPECT().Get(gomock.Any(), key).Return("raced-id", true, nil),
	)

	s.Equal("raced-id", manager.GetOrCreate(s.ctx, "alice", "store-1"))
}

func (s *ManagerSuite) TestUnavailableStorageStillYieldsID() {
	kv := storagemocks.NewMockKV(s.ctrl)
	manager := NewManager(kv, s.identity, s.tokens, metrics.New(prometheus.NewRegistry()), logger.New())

	kv.EXPECT().Get(gomock.Any(), gomock.Any()).Return("", false, storage.ErrUnavailable).Times(2)
	kv.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(storage.ErrUnavailable)

	s.NotEmpty(manager.GetOrCreate(s.ctx, "alice", "store-1"))
}

func (s *ManagerSuite) TestRequiresCorrelation() {
	cases := []struct {
		path string
		want bool
	}{
		{"/api/cart/items", true},
		{"/api/cart", true},
		{"/api/orders", true},
		{"/api/products/search", true},
		{"/api/coupons/search", true},
		{"/api/coupons/eligible", true},
		{"/api/stt", false},
		{"/api/offers/frontstore", false},
		{"/api/products", false},
		{"/health", false},
		{"", false},
	}
	for _, tc := range cases {
		s.Run(fmt.Sprintf("path=%s", tc.path), func() {
			s.Equal(tc.want, RequiresCorrelation(tc.path))
		})
	}
}

func (s *ManagerSuite) TestPseudoV4Shape() {
	v4 := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	for i := 0; i < 64; i++ {
		s.Regexp(v4, pseudoV4())
	}
}

func (s *ManagerSuite) TestNewIDShape() {
	v4 := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	s.Regexp(v4, NewID())
}
