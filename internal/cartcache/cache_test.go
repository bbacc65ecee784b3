package cartcache

import (
	"context"
	"testing"
	"time"

	"trolley/internal/cart"
	"trolley/internal/platform/logger"
	"trolley/internal/platform/metrics"
	"trolley/internal/platform/storage"
	storagemocks "trolley/internal/platform/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type CacheSuite struct {
	suite.Suite
	ctx   context.Context
	kv    *storage.Memory
	now   time.Time
	cache *Cache
	items []cart.Item
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = storage.NewMemory()
	s.now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s.cache = New(s.kv, metrics.New(prometheus.NewRegistry()), logger.New(),
		WithClock(func() time.Time { return s.now }))
	s.items = []cart.Item{
		{ProductID: "A", Quantity: 2},
		{ProductID: "B", Quantity: 1},
	}
}

func (s *CacheSuite) write() {
	s.cache.Write(s.ctx,
		[]cart.Coupon{{Code: "SAVE10", Discount: 10}},
		[]cart.Coupon{{Code: "BULK", Reason: "minimum not met"}},
		cart.Summary{Subtotal: 42.50, Discount: 10, Total: 32.50, ItemCount: 3},
		s.items)
}

func (s *CacheSuite) TestFreshMatchingEntryIsValid() {
	s.write()
	s.now = s.now.Add(10 * time.Second)

	s.True(s.cache.IsValid(s.ctx, s.items))
	entry := s.cache.Read(s.ctx)
	s.Require().NotNil(entry)
	s.Equal(32.50, entry.Summary.Total)
	s.Equal("SAVE10", entry.EligibleCoupons[0].Code)
	s.Equal("BULK", entry.IneligibleCoupons[0].Code)
}

func (s *CacheSuite) TestExpiredEntryIsInvalidDespiteMatchingHash() {
	s.write()
	s.now = s.now.Add(40 * time.Second)
	s.False(s.cache.IsValid(s.ctx, s.items))
}

func (s *CacheSuite) TestHashMismatchIsInvalidDespiteFreshness() {
	s.write()
	s.now = s.now.Add(1 * time.Second)
	changed := []cart.Item{
		{ProductID: "A", Quantity: 3},
		{ProductID: "B", Quantity: 1},
	}
	s.False(s.cache.IsValid(s.ctx, changed))
}

func (s *CacheSuite) TestReorderedItemsStayValid() {
	s.write()
	reordered := []cart.Item{s.items[1], s.items[0]}
	s.True(s.cache.IsValid(s.ctx, reordered))
}

func (s *CacheSuite) TestEmptySlotIsMiss() {
	s.False(s.cache.IsValid(s.ctx, s.items))
	s.Nil(s.cache.Read(s.ctx))
}

func (s *CacheSuite) TestUndecodableEntryIsMiss() {
	s.Require().NoError(s.kv.Set(s.ctx, slotKey, "{truncated"))
	s.False(s.cache.IsValid(s.ctx, s.items))
	s.Nil(s.cache.Read(s.ctx))
}

func (s *CacheSuite) TestWrongShapeEntryIsMiss() {
	// Structurally mismatched JSON decodes into zero values: no hash, so
	// validation fails and the entry reads as a miss for any cart.
	s.Require().NoError(s.kv.Set(s.ctx, slotKey, `{"something":"else"}`))
	s.False(s.cache.IsValid(s.ctx, s.items))
}

func (s *CacheSuite) TestWriteOverwritesSingletonSlot() {
	s.write()
	newItems := []cart.Item{{ProductID: "Z", Quantity: 9}}
	s.cache.Write(s.ctx, nil, nil, cart.Summary{Total: 1}, newItems)

	s.False(s.cache.IsValid(s.ctx, s.items))
	s.True(s.cache.IsValid(s.ctx, newItems))
}

func (s *CacheSuite) TestClearRemovesSlot() {
	s.write()
	s.cache.Clear(s.ctx)
	s.False(s.cache.IsValid(s.ctx, s.items))
	s.Nil(s.cache.Read(s.ctx))
}

func (s *CacheSuite) TestWriteSwallowsStorageFailure() {
	ctrl := gomock.NewController(s.T())
	kv := storagemocks.NewMockKV(ctrl)
	cache := New(kv, metrics.New(prometheus.NewRegistry()), logger.New())

	kv.EXPECT().Set(gomock.Any(), slotKey, gomock.Any()).Return(storage.ErrUnavailable)
	s.NotPanics(func() {
		cache.Write(s.ctx, nil, nil, cart.Summary{}, s.items)
	})
}
