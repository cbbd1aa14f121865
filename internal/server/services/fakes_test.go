package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/intercomkey/internal/common"
	"github.com/dmitrijs2005/intercomkey/internal/dbx"
	"github.com/dmitrijs2005/intercomkey/internal/server/config"
	"github.com/dmitrijs2005/intercomkey/internal/server/models"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/cameras"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/devices"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/logins"
	"github.com/dmitrijs2005/intercomkey/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                  "master",
		LocalTokenValidityDuration: time.Hour,
	}
}

// --- fake repositories ---

type fakeUsers struct {
	byID      map[string]*models.User
	seq       int
	createErr error
	secretErr error
}

func (f *fakeUsers) Create(context.Context) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	u := &models.User{ID: fmt.Sprintf("user-%d", f.seq), CreatedAt: time.Now()}
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateSecret(_ context.Context, id, secret string) error {
	if f.secretErr != nil {
		return f.secretErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.SecretKey = secret
	return nil
}

func (f *fakeUsers) UpdateLocalToken(_ context.Context, id, token string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.LocalToken = token
	return nil
}

type fakeLogins struct {
	byLogin map[string]*models.Login
	seq     int
	findErr error
}

func (f *fakeLogins) Create(_ context.Context, l *models.Login) (*models.Login, error) {
	f.seq++
	l.ID = fmt.Sprintf("login-%d", f.seq)
	cp := *l
	f.byLogin[l.Login] = &cp
	return l, nil
}

func (f *fakeLogins) GetByLogin(_ context.Context, login string) (*models.Login, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	l, ok := f.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLogins) GetByID(_ context.Context, id string) (*models.Login, error) {
	for _, l := range f.byLogin {
		if l.ID == id {
			cp := *l
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeLogins) ListByUser(_ context.Context, userID string) ([]*models.Login, error) {
	var out []*models.Login
	for _, l := range f.byLogin {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeLogins) UpdateVendorToken(_ context.Context, id, token string, expiresAt *time.Time) error {
	for _, l := range f.byLogin {
		if l.ID == id {
			l.VendorToken = token
			l.ExpiresAt = expiresAt
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeDevices struct {
	devices.Repository
	owned     map[string]*models.Device // key: userID + "/" + deviceID
	updated   *models.Device
	updateErr error
}

func (f *fakeDevices) GetForUser(_ context.Context, userID, id string) (*models.Device, error) {
	d, ok := f.owned[userID+"/"+id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDevices) UpdateByUser(_ context.Context, id string, nameByUser *string, isFavorite bool) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = &models.Device{ID: id, NameByUser: nameByUser, IsFavorite: isFavorite}
	return nil
}

func (f *fakeDevices) ListByUser(_ context.Context, userID string) ([]*models.Device, error) {
	var out []*models.Device
	for k, d := range f.owned {
		if len(k) > len(userID) && k[:len(userID)+1] == userID+"/" {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeCameras struct {
	cameras.Repository
	list []*models.Camera
}

func (f *fakeCameras) ListByUser(context.Context, string) ([]*models.Camera, error) {
	return f.list, nil
}

type fakeRepoManager struct {
	users   *fakeUsers
	logins  *fakeLogins
	devices *fakeDevices
	cameras *fakeCameras
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:   &fakeUsers{byID: map[string]*models.User{}},
		logins:  &fakeLogins{byLogin: map[string]*models.Login{}},
		devices: &fakeDevices{owned: map[string]*models.Device{}},
		cameras: &fakeCameras{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) Logins(dbx.DBTX) logins.Repository           { return m.logins }
func (m *fakeRepoManager) Cameras(dbx.DBTX) cameras.Repository         { return m.cameras }
func (m *fakeRepoManager) Devices(dbx.DBTX) devices.Repository         { return m.devices }
