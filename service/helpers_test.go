package service

import (
	"context"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"scanndine/auth"
	"scanndine/database"
	"scanndine/model"
	"scanndine/realtime"
	"scanndine/repository"
	"scanndine/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.OrderEvent
}

func (n *recordingNotifier) NotifyOrder(_ context.Context, ev realtime.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type memImages struct {
	saved   []string
	deleted []string
}

func (m *memImages) Save(file *multipart.FileHeader) (string, error) {
	url := "http://img.test/uploads/" + file.Filename
	m.saved = append(m.saved, url)
	return url, nil
}

func (m *memImages) Delete(url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

type fixture struct {
	db        *gorm.DB
	users     *repository.UserRepository
	menuRepo  *repository.MenuRepository
	orderRepo *repository.OrderRepository
	tokens    *utils.TokenIssuer
	notifier  *recordingNotifier
	images    *memImages

	auth      *AuthService
	staff     *StaffService
	menu      *MenuService
	tables    *TableService
	orders    *OrderService
	analytics *AnalyticsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log, _ := test.NewNullLogger()
	f := &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		menuRepo:  repository.NewMenuRepository(db),
		orderRepo: repository.NewOrderRepository(db),
		tokens:    utils.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
		notifier:  &recordingNotifier{},
		images:    &memImages{},
	}
	hasher := auth.NewPasswordHasher(4)
	f.auth = NewAuthService(f.users, hasher, f.tokens, log)
	f.staff = NewStaffService(f.users, repository.NewQueryRepository(db), f.auth, hasher, nil, log)
	f.menu = NewMenuService(f.menuRepo, f.images, log)
	f.tables = NewTableService(repository.NewTableRepository(db), utils.RenderQR, "http://front.test/", log)
	f.orders = NewOrderService(f.orderRepo, f.menuRepo, f.tables, f.notifier, nil, log)
	f.analytics = NewAnalyticsService(f.orderRepo)
	return f
}

var ctx = context.Background()

func ptr[T any](v T) *T { return &v }

func (f *fixture) category(t *testing.T, name string) *model.MenuCategory {
	t.Helper()
	c, err := f.menu.CreateCategory(ctx, CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) item(t *testing.T, categoryID uint, name, price string, tags ...string) *model.MenuItem {
	t.Helper()
	it, err := f.menu.CreateItem(ctx, ItemInput{
		Name:       ptr(name),
		Price:      ptr(price),
		CategoryID: ptr(categoryID),
		Tags:       tags,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) table(t *testing.T, number int) *model.Table {
	t.Helper()
	tb, err := f.tables.Create(ctx, number)
	require.NoError(t, err)
	return tb
}

func (f *fixture) register(t *testing.T, name, email string, role model.UserRole) *model.User {
	t.Helper()
	res, err := f.auth.Register(ctx, RegisterInput{Name: name, Email: email, Password: "secret123", Role: role})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
