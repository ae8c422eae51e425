// mocks_test.go — общая тестовая обвязка сервисного слоя:
// in-memory mock-серверы LC и DAM плюс fake-репозитории.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
	"github.com/bigkaa/mediastore/sync-module/internal/remote"
	"github.com/bigkaa/mediastore/sync-module/internal/repository"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fastPolicy — политика повторов без ожиданий для тестов.
func fastPolicy() remote.RetryPolicy {
	return remote.RetryPolicy{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}
}

// writeToken обслуживает token endpoint mock-серверов.
func writeToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": "test-token",
		"expires_in":   3600,
	})
}

// mockLC — конфигурируемый mock License Catalog.
type mockLC struct {
	mu sync.Mutex

	vocab map[string][]lcclient.VocabularyElement
	// pagesByCursor — страница ассетов на каждый курсор ("" — начало).
	pagesByCursor map[string]lcclient.AssetsPage
	downloads     map[string][]lcclient.DownloadLocation
	files         map[string][]byte

	// failAssetsAfter — вернуть 500 на N-й запрос страницы (0 — не падать).
	failAssetsAfter int
	assetsRequests  int

	server *httptest.Server
}

func newMockLC(t *testing.T) *mockLC {
	t.Helper()
	lc := &mockLC{
		vocab:         map[string][]lcclient.VocabularyElement{},
		pagesByCursor: map[string]lcclient.AssetsPage{},
		downloads:     map[string][]lcclient.DownloadLocation{},
		files:         map[string][]byte{},
	}
	lc.server = httptest.NewServer(http.HandlerFunc(lc.handle))
	t.Cleanup(lc.server.Close)
	return lc
}

func (m *mockLC) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case r.URL.Path == "/oauth/token":
		writeToken(w)

	case r.URL.Path == "/api/v1/vocabulary":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(lcclient.VocabularyResponse{Vocabularies: m.vocab})

	case r.URL.Path == "/api/v1/assets":
		m.assetsRequests++
		if m.failAssetsAfter > 0 && m.assetsRequests >= m.failAssetsAfter {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		cursor := r.URL.Query().Get("updatedSince")
		page := m.pagesByCursor[cursor]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)

	case strings.HasPrefix(r.URL.Path, "/api/v1/assets/") && strings.HasSuffix(r.URL.Path, "/downloads"):
		txID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/assets/"), "/downloads")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"downloads": m.downloads[txID]})

	case strings.HasPrefix(r.URL.Path, "/files/"):
		fileID := strings.TrimPrefix(r.URL.Path, "/files/")
		data, ok := m.files[fileID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// addAsset добавляет ассет с бинарником: страница, адрес скачивания, файл.
func (m *mockLC) addBinary(txID, fileID, fileName string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads[txID] = append(m.downloads[txID], lcclient.DownloadLocation{
		FileID:              fileID,
		URL:                 m.server.URL + "/files/" + fileID,
		RecommendedFileName: fileName,
	})
	m.files[fileID] = data
}

func (m *mockLC) setPage(cursor string, page lcclient.AssetsPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pagesByCursor[cursor] = page
}

func (m *mockLC) client(logger *slog.Logger) *lcclient.Client {
	tokens := remote.NewTokenSource("lc", m.server.URL+"/oauth/token", "test", "test", nil, logger)
	return lcclient.New(m.server.URL, tokens, fastPolicy(), logger)
}

// mockDAM — stateful mock Mediastore DAM: справочники, контент, transfer-сессии.
type mockDAM struct {
	mu sync.Mutex

	nextID    int
	listItems map[string]damclient.ListItem       // id → item
	contents  map[string]damclient.Content        // id → content
	parts     map[string][]damclient.PartRelation // contentID → связи
	transfers map[string]*mockTransfer            // id → сессия

	// opLog — журнал операций для проверки порядка.
	opLog []string

	server *httptest.Server
}

type mockTransfer struct {
	files      map[string][]byte
	attachedTo string
	deleted    bool
}

func newMockDAM(t *testing.T) *mockDAM {
	t.Helper()
	dam := &mockDAM{
		listItems: map[string]damclient.ListItem{},
		contents:  map[string]damclient.Content{},
		parts:     map[string][]damclient.PartRelation{},
		transfers: map[string]*mockTransfer{},
	}
	dam.server = httptest.NewServer(http.HandlerFunc(dam.handle))
	t.Cleanup(dam.server.Close)
	return dam
}

func (m *mockDAM) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// seedListItem добавляет элемент справочника и возвращает его ID.
func (m *mockDAM) seedListItem(kind, key string, labels map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID("li")
	m.listItems[id] = damclient.ListItem{ID: id, Kind: kind, Key: key, Labels: labels}
	return id
}

// seedContent добавляет запись контента и возвращает её ID.
func (m *mockDAM) seedContent(meta damclient.Metadata) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.newID("c")
	m.contents[id] = damclient.Content{ID: id, Metadata: meta}
	return id
}

func (m *mockDAM) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/oauth/token":
		writeToken(w)

	case path == "/api/v1/listitems" && r.Method == http.MethodGet:
		kind := r.URL.Query().Get("kind")
		items := []damclient.ListItem{}
		for _, item := range m.listItems {
			if item.Kind == kind {
				items = append(items, item)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": items})

	case path == "/api/v1/listitems" && r.Method == http.MethodPost:
		var req struct {
			Kind   string            `json:"kind"`
			Key    string            `json:"key"`
			Labels map[string]string `json:"labels"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		id := m.newID("li")
		item := damclient.ListItem{ID: id, Kind: req.Kind, Key: req.Key, Labels: req.Labels}
		m.listItems[id] = item
		m.opLog = append(m.opLog, "create:"+req.Kind+"/"+req.Key)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(item)

	case strings.HasPrefix(path, "/api/v1/listitems/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(path, "/api/v1/listitems/")
		item, ok := m.listItems[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Labels map[string]string `json:"labels"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		item.Labels = req.Labels
		m.listItems[id] = item
		m.opLog = append(m.opLog, "update:"+item.Kind+"/"+item.Key)
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(path, "/api/v1/listitems/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/listitems/")
		item, ok := m.listItems[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(m.listItems, id)
		m.opLog = append(m.opLog, "delete:"+item.Kind+"/"+item.Key)
		w.WriteHeader(http.StatusNoContent)

	case path == "/api/v1/content/search":
		field := r.URL.Query().Get("field")
		value := r.URL.Query().Get("value")
		items := []damclient.Content{}
		for _, c := range m.contents {
			if fmt.Sprintf("%v", c.Metadata[field]) == value {
				items = append(items, c)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"items": items})

	case path == "/api/v1/content" && r.Method == http.MethodPost:
		var req struct {
			Metadata damclient.Metadata       `json:"metadata"`
			Parts    []damclient.PartRelation `json:"parts"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		id := m.newID("c")
		m.contents[id] = damclient.Content{ID: id, Metadata: req.Metadata}
		m.parts[id] = req.Parts
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.contents[id])

	case strings.HasSuffix(path, "/metadata") && r.Method == http.MethodPatch:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/content/"), "/metadata")
		content, ok := m.contents[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Metadata damclient.Metadata `json:"metadata"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		// Merge-семантика: отсутствующие ключи не трогаются
		if content.Metadata == nil {
			content.Metadata = damclient.Metadata{}
		}
		for k, v := range req.Metadata {
			content.Metadata[k] = v
		}
		m.contents[id] = content
		w.WriteHeader(http.StatusNoContent)

	case strings.HasSuffix(path, "/file") && strings.HasPrefix(path, "/api/v1/content/") && r.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/content/"), "/file")
		if _, ok := m.contents[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			TransferID string `json:"transferId"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if tr, ok := m.transfers[req.TransferID]; ok {
			tr.attachedTo = id
		}
		w.WriteHeader(http.StatusNoContent)

	case strings.HasSuffix(path, "/parts") && r.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/content/"), "/parts")
		if _, ok := m.contents[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Parts []damclient.PartRelation `json:"parts"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		m.parts[id] = req.Parts
		w.WriteHeader(http.StatusNoContent)

	case path == "/api/v1/transfers" && r.Method == http.MethodPost:
		id := m.newID("tr")
		m.transfers[id] = &mockTransfer{files: map[string][]byte{}}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(damclient.Transfer{ID: id, Status: damclient.TransferStatusPending})

	case strings.HasSuffix(path, "/file") && strings.HasPrefix(path, "/api/v1/transfers/") && r.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/transfers/"), "/file")
		tr, ok := m.transfers[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		data := make([]byte, 0)
		buf := make([]byte, 4096)
		for {
			n, err := r.Body.Read(buf)
			data = append(data, buf[:n]...)
			if err != nil {
				break
			}
		}
		tr.files[r.URL.Query().Get("fileName")] = data
		w.WriteHeader(http.StatusNoContent)

	case strings.HasPrefix(path, "/api/v1/transfers/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/transfers/")
		tr, ok := m.transfers[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		// Импорт «завершается» сразу после загрузки файлов
		resp := damclient.Transfer{ID: id, Status: damclient.TransferStatusImporting}
		if len(tr.files) > 0 {
			resp.Status = damclient.TransferStatusCompleted
			if tr.attachedTo != "" {
				resp.ContentID = tr.attachedTo
			} else {
				contentID := m.newID("c")
				m.contents[contentID] = damclient.Content{ID: contentID, Metadata: damclient.Metadata{}}
				tr.attachedTo = contentID
				resp.ContentID = contentID
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)

	case strings.HasPrefix(path, "/api/v1/transfers/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/transfers/")
		if tr, ok := m.transfers[id]; ok {
			tr.deleted = true
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *mockDAM) client(logger *slog.Logger) *damclient.Client {
	tokens := remote.NewTokenSource("dam", m.server.URL+"/oauth/token", "test", "test", nil, logger)
	return damclient.New(m.server.URL, tokens, fastPolicy(), logger)
}

// contentByTransaction находит запись контента по ID транзакции.
func (m *mockDAM) contentByTransaction(txID string) *damclient.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contents {
		if fmt.Sprintf("%v", c.Metadata["lc_transaction_id"]) == txID {
			return &c
		}
	}
	return nil
}

// fakeCheckpointRepo — in-memory реализация CheckpointRepository.
type fakeCheckpointRepo struct {
	mu    sync.Mutex
	state model.SyncState
	// savedCursors — история сохранённых курсоров (для проверки
	// продвижения после каждой страницы).
	savedCursors []string
}

func newFakeCheckpointRepo() *fakeCheckpointRepo {
	return &fakeCheckpointRepo{state: model.SyncState{ID: 1}}
}

func (f *fakeCheckpointRepo) Get(ctx context.Context) (*model.SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.state
	return &s, nil
}

func (f *fakeCheckpointRepo) SaveCursor(ctx context.Context, cursor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cursor
	f.state.Cursor = &c
	f.savedCursors = append(f.savedCursors, cursor)
	return nil
}

func (f *fakeCheckpointRepo) UpdateVocabSyncAt(ctx context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.LastVocabSyncAt = &t
	return nil
}

func (f *fakeCheckpointRepo) UpdateAssetSyncAt(ctx context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.LastAssetSyncAt = &t
	return nil
}

// fakeRunRepo — in-memory реализация SyncRunRepository.
type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*model.SyncRun
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{}
}

func (f *fakeRunRepo) Insert(ctx context.Context, run *model.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *run
	f.runs = append(f.runs, &r)
	return nil
}

func (f *fakeRunRepo) Finish(ctx context.Context, run *model.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.runs {
		if r.ID == run.ID {
			updated := *run
			f.runs[i] = &updated
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRunRepo) GetLatest(ctx context.Context) (*model.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil, repository.ErrNotFound
	}
	return f.runs[len(f.runs)-1], nil
}

func (f *fakeRunRepo) List(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runs := make([]*model.SyncRun, 0, limit)
	for i := len(f.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, f.runs[i])
	}
	return runs, nil
}

// testStack — полный собранный сервисный стек поверх mock-серверов.
type testStack struct {
	lc   *mockLC
	dam  *mockDAM
	sync *SyncService

	checkpoints *fakeCheckpointRepo
	runs        *fakeRunRepo

	resolver    *ReferenceResolver
	vocab       *VocabSyncService
	transformer *AssetTransformer
}

// newTestStack собирает оркестратор с mock-серверами и fake-репозиториями.
func newTestStack(t *testing.T) *testStack {
	t.Helper()
	logger := testLogger()

	lc := newMockLC(t)
	dam := newMockDAM(t)
	lcClient := lc.client(logger)
	damClient := dam.client(logger)

	checkpoints := newFakeCheckpointRepo()
	runs := newFakeRunRepo()

	resolver := NewReferenceResolver(damClient, time.Minute, logger)
	vocab := NewVocabSyncService(lcClient, damClient, resolver, checkpoints, logger)
	transformer := NewAssetTransformer(resolver, logger)
	transfers := NewBinaryTransferService(lcClient, damClient, t.TempDir(), 4, logger)
	compounds := NewCompoundAssembler(damClient, logger)

	syncSvc := NewSyncService(lcClient, damClient, vocab, transformer, transfers, compounds,
		checkpoints, runs, 10, time.Hour, logger)

	return &testStack{
		lc:          lc,
		dam:         dam,
		sync:        syncSvc,
		checkpoints: checkpoints,
		runs:        runs,
		resolver:    resolver,
		vocab:       vocab,
		transformer: transformer,
	}
}
