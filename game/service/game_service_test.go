package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/atlas"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"github.com/wricardo/co2-logistics-game/game/service"
	"github.com/wricardo/co2-logistics-game/game/session"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	sessions map[string]*service.Session
	catalog  *atlas.Atlas
}

func NewMockSessionManager(catalog *atlas.Atlas) *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		catalog:  catalog,
	}
}

func (m *MockSessionManager) Create(id, configID string, config *engine.BoardConfig) (*service.Session, error) {
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	squares, err := m.catalog.Resolve(config.Squares)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(config, squares, engine.WithRand(rand.New(rand.NewPCG(7, 3))))
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:        id,
		ConfigID:  configID,
		Engine:    eng,
		Config:    config,
		CreatedAt: time.Now(),
	}
	session.Touch(time.Now())
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	session, exists := m.sessions[id]
	if !exists {
		return nil, errors.New("session not found")
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	if _, exists := m.sessions[id]; !exists {
		return errors.New("session not found")
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	if session, exists := m.sessions[id]; exists {
		session.Touch(time.Now())
		return nil
	}
	return errors.New("session not found")
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.BoardConfig
	saved   map[string]*engine.BoardConfig
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := &engine.BoardConfig{
		Name:        "test",
		Description: "Test board",
		Squares: []engine.SquareRef{
			{Kind: engine.Storage, ID: 1},
			{Kind: engine.Storage, ID: 2},
			{Kind: engine.Storage, ID: 3},
			{Kind: engine.Storage, ID: 4},
		},
	}
	if err := engine.ValidateBoardConfig(defaultConfig); err != nil {
		panic(err)
	}

	return &MockConfigManager{
		configs: map[string]*engine.BoardConfig{"test": defaultConfig},
		saved:   map[string]*engine.BoardConfig{},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.BoardConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, service.ErrConfigNotFound
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for id, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename: id + ".json",
			ConfigID: id,
			Name:     config.Name,
			Squares:  len(config.Squares),
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.BoardConfig {
	return m.configs["test"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.BoardConfig) error {
	m.saved[name] = config
	return nil
}

// MockLanes implements service.PortLanes for testing
type MockLanes struct{}

func (MockLanes) AvailableYears() []string { return []string{"2016", "2017"} }

func (MockLanes) ValidDestinations(from, year string) []string {
	if from == "横浜" && year == "2017" {
		return []string{"神戸", "苫小牧"}
	}
	return []string{}
}

func testCatalog() *atlas.Atlas {
	storages := []engine.Location{
		{ID: 1, Name: "東京DC", Kind: engine.Storage, Coords: engine.Coordinates{Latitude: 35.68, Longitude: 139.76}},
		{ID: 2, Name: "横浜DC", Kind: engine.Storage, Coords: engine.Coordinates{Latitude: 35.44, Longitude: 139.64}},
		{ID: 3, Name: "静岡DC", Kind: engine.Storage, Coords: engine.Coordinates{Latitude: 34.98, Longitude: 138.38}},
		{ID: 4, Name: "名古屋DC", Kind: engine.Storage, Coords: engine.Coordinates{Latitude: 35.18, Longitude: 136.91}},
	}
	ports := []engine.Location{
		{ID: 1, Name: "横浜", Kind: engine.Port, Coords: engine.Coordinates{Latitude: 35.45, Longitude: 139.65}},
		{ID: 2, Name: "神戸", Kind: engine.Port, Coords: engine.Coordinates{Latitude: 34.68, Longitude: 135.19}},
	}
	return atlas.New(ports, storages)
}

func newTestService() (service.GameService, *MockConfigManager) {
	catalog := testCatalog()
	configs := NewMockConfigManager()
	svc := service.NewGameService(service.Dependencies{
		Sessions: NewMockSessionManager(catalog),
		Configs:  configs,
		Catalog:  catalog,
		Lanes:    MockLanes{},
		Logger:   zerolog.Nop(),
	})
	return svc, configs
}

// Test cases
func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	tests := []struct {
		name     string
		configID string
		players  []string
		wantErr  error
		started  bool
	}{
		{name: "create with default config", configID: ""},
		{name: "create with specific config", configID: "test"},
		{name: "create and start", configID: "test", players: []string{"Aiko", "Ben"}, started: true},
		{name: "create with invalid config", configID: "nonexistent", wantErr: service.ErrConfigNotFound},
		{name: "create with too many players", configID: "test", players: []string{"a", "b", "c", "d", "e"}, wantErr: service.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.configID, tt.players)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			if info.ConfigID != "test" {
				t.Errorf("Expected config id 'test', got '%s'", info.ConfigID)
			}
			if len(info.Board) != 4 {
				t.Errorf("Expected 4 board squares, got %d", len(info.Board))
			}
			if info.GameState.Started != tt.started {
				t.Errorf("Expected started=%v, got %v", tt.started, info.GameState.Started)
			}
		})
	}
}

func TestGameService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.GetSession(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("GetSession: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.RollDice(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("RollDice: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.DeleteSession(ctx, "nope"); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("DeleteSession: expected ErrSessionNotFound, got %v", err)
	}
}

func TestGameService_QuestFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, err := svc.CreateSession(ctx, "test", []string{"Aiko", "Ben"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// completing before rolling is a rule violation, not an error
	res, err := svc.CompleteQuest(ctx, info.ID)
	if err != nil {
		t.Fatalf("CompleteQuest() error = %v", err)
	}
	if res.Success {
		t.Error("Expected CompleteQuest to fail before rolling")
	}
	if res.Message == "" {
		t.Error("Expected a rejection message")
	}

	res, err = svc.RollDice(ctx, info.ID)
	if err != nil {
		t.Fatalf("RollDice() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Expected roll to succeed, got: %s", res.Message)
	}
	if res.Roll == nil || res.Roll.Quest == nil {
		t.Fatal("Expected roll outcome with a quest")
	}
	if len(res.Events) != 2 || res.Events[1].Type != service.EventQuestIssued {
		t.Errorf("Expected rolled and quest_issued events, got %+v", res.Events)
	}
	if res.GameState.Phase != engine.PhaseDelivery {
		t.Errorf("Expected phase %s, got %s", engine.PhaseDelivery, res.GameState.Phase)
	}

	// second roll in the same turn is rejected
	again, err := svc.RollDice(ctx, info.ID)
	if err != nil {
		t.Fatalf("RollDice() error = %v", err)
	}
	if again.Success {
		t.Error("Expected second roll to be rejected")
	}

	dest := res.Roll.Quest.To
	toggle, err := svc.ToggleStop(ctx, info.ID, dest.Kind, dest.ID)
	if err != nil {
		t.Fatalf("ToggleStop() error = %v", err)
	}
	if !toggle.Success || toggle.Toggle.Outcome != engine.Added {
		t.Fatalf("Expected stop to be added, got success=%v message=%s", toggle.Success, toggle.Message)
	}
	if toggle.Events[0].Type != service.EventStopAdded {
		t.Errorf("Expected stop_added event, got %s", toggle.Events[0].Type)
	}

	done, err := svc.CompleteQuest(ctx, info.ID)
	if err != nil {
		t.Fatalf("CompleteQuest() error = %v", err)
	}
	if !done.Success {
		t.Fatalf("Expected quest completion, got: %s", done.Message)
	}
	if done.Quest == nil || done.Quest.Record.QuestNumber != 1 {
		t.Fatal("Expected first quest record")
	}
	if done.Events[0].Type != service.EventQuestCompleted {
		t.Errorf("Expected quest_completed event, got %s", done.Events[0].Type)
	}

	history, err := svc.GetQuestHistory(ctx, info.ID, service.HistoryOptions{})
	if err != nil {
		t.Fatalf("GetQuestHistory() error = %v", err)
	}
	if history.TotalQuests != 1 || len(history.Quests) != 1 {
		t.Errorf("Expected 1 quest in history, got %d", history.TotalQuests)
	}
	if history.PageSize != 20 {
		t.Errorf("Expected default page size 20, got %d", history.PageSize)
	}
}

func TestGameService_ToggleUnknownLocation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", []string{"Aiko"})
	svc.RollDice(ctx, info.ID)

	res, err := svc.ToggleStop(ctx, info.ID, engine.Storage, 999)
	if err != nil {
		t.Fatalf("ToggleStop() error = %v", err)
	}
	if res.Success {
		t.Error("Expected unknown location to be rejected")
	}
	if res.Message != "Unknown storage 999." {
		t.Errorf("Expected 'Unknown storage 999.', got '%s'", res.Message)
	}
}

func TestGameService_ToggleWithoutQuest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", []string{"Aiko"})

	res, err := svc.ToggleStop(ctx, info.ID, engine.Storage, 2)
	if err != nil {
		t.Fatalf("ToggleStop() error = %v", err)
	}
	if res.Success {
		t.Error("Expected toggle to be rejected without an active quest")
	}
}

func TestGameService_ResetAndYear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", []string{"Aiko"})

	res, err := svc.SetYear(ctx, info.ID, "2016")
	if err != nil || !res.Success {
		t.Fatalf("SetYear() failed: %v %+v", err, res)
	}
	if res.GameState.Year != "2016" {
		t.Errorf("Expected year 2016, got %s", res.GameState.Year)
	}

	res, _ = svc.SetYear(ctx, info.ID, "  ")
	if res.Success {
		t.Error("Expected blank year to be rejected")
	}

	res, err = svc.ResetGame(ctx, info.ID)
	if err != nil {
		t.Fatalf("ResetGame() error = %v", err)
	}
	if res.GameState.Started {
		t.Error("Expected reset game to be unstarted")
	}
	if res.GameState.Year != "2016" {
		t.Errorf("Expected reset to keep year 2016, got %s", res.GameState.Year)
	}
}

func TestGameService_HistoryPagination(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", []string{"Aiko"})
	for i := 0; i < 3; i++ {
		roll, err := svc.RollDice(ctx, info.ID)
		if err != nil || !roll.Success {
			// the single player may have reached the end of the board
			break
		}
		dest := roll.Roll.Quest.To
		svc.ToggleStop(ctx, info.ID, dest.Kind, dest.ID)
		svc.CompleteQuest(ctx, info.ID)
	}

	full, _ := svc.GetQuestHistory(ctx, info.ID, service.HistoryOptions{Order: "asc"})
	total := full.TotalQuests
	if total == 0 {
		t.Fatal("Expected at least one completed quest")
	}

	page, err := svc.GetQuestHistory(ctx, info.ID, service.HistoryOptions{Page: 1, Limit: 1, Order: "desc"})
	if err != nil {
		t.Fatalf("GetQuestHistory() error = %v", err)
	}
	if len(page.Quests) != 1 {
		t.Fatalf("Expected 1 quest on page, got %d", len(page.Quests))
	}
	if page.Quests[0].QuestNumber != total {
		t.Errorf("Expected most recent quest %d first, got %d", total, page.Quests[0].QuestNumber)
	}
	if page.TotalPages != total {
		t.Errorf("Expected %d pages, got %d", total, page.TotalPages)
	}
	if page.HasPrevious {
		t.Error("Expected no previous page")
	}

	beyond, _ := svc.GetQuestHistory(ctx, info.ID, service.HistoryOptions{Page: 10, Limit: 1})
	if len(beyond.Quests) != 0 {
		t.Errorf("Expected empty page, got %d quests", len(beyond.Quests))
	}
}

func TestGameService_ReferenceData(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	all, err := svc.ListLocations(ctx, "")
	if err != nil {
		t.Fatalf("ListLocations() error = %v", err)
	}
	if len(all) != 6 {
		t.Errorf("Expected 6 locations, got %d", len(all))
	}
	ports, _ := svc.ListLocations(ctx, engine.Port)
	if len(ports) != 2 {
		t.Errorf("Expected 2 ports, got %d", len(ports))
	}
	if _, err := svc.ListLocations(ctx, "airport"); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}

	years, _ := svc.AvailableYears(ctx)
	if len(years) != 2 {
		t.Errorf("Expected 2 years, got %v", years)
	}

	dests, _ := svc.ValidDestinations(ctx, "横浜", "")
	if len(dests) != 2 {
		t.Errorf("Expected default year lanes from 横浜, got %v", dests)
	}
	if _, err := svc.ValidDestinations(ctx, "", "2017"); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestGameService_EstimateEmissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	est, err := svc.EstimateEmissions(ctx, engine.Truck, 75)
	if err != nil {
		t.Fatalf("EstimateEmissions() error = %v", err)
	}
	if math.Abs(est.FuelLiters-10) > 1e-9 {
		t.Errorf("Expected 10 liters, got %f", est.FuelLiters)
	}
	if math.Abs(est.CO2Kg-23.1) > 1e-9 {
		t.Errorf("Expected 23.1 kg CO2, got %f", est.CO2Kg)
	}

	if _, err := svc.EstimateEmissions(ctx, "rocket", 10); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown method, got %v", err)
	}
	if _, err := svc.EstimateEmissions(ctx, engine.Air, -1); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for negative distance, got %v", err)
	}
}

func TestGameService_SaveConfig(t *testing.T) {
	ctx := context.Background()
	svc, configs := newTestService()

	good := &engine.BoardConfig{
		Name: "mini",
		Squares: []engine.SquareRef{
			{Kind: engine.Storage, ID: 1},
			{Kind: engine.Port, ID: 2},
		},
	}
	if err := svc.SaveConfig(ctx, "mini", good); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if configs.saved["mini"] == nil {
		t.Error("Expected board to reach the config manager")
	}

	bad := &engine.BoardConfig{
		Name: "broken",
		Squares: []engine.SquareRef{
			{Kind: engine.Storage, ID: 1},
			{Kind: engine.Port, ID: 42},
		},
	}
	if err := svc.SaveConfig(ctx, "broken", bad); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown square, got %v", err)
	}
	if configs.saved["broken"] != nil {
		t.Error("Expected invalid board not to be saved")
	}
}

func TestGameService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	a, _ := svc.CreateSession(ctx, "test", nil)
	svc.CreateSession(ctx, "test", nil)

	list, _ := svc.ListSessions(ctx)
	if len(list) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(list))
	}
	for _, s := range list {
		if s.Board != nil {
			t.Error("Expected list entries without board detail")
		}
	}

	if err := svc.DeleteSession(ctx, a.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	list, _ = svc.ListSessions(ctx)
	if len(list) != 1 {
		t.Errorf("Expected 1 session after delete, got %d", len(list))
	}
}

func TestGameService_ConcurrentGetSession(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	sessions := session.NewManager(session.NewEngineFactory(catalog, zerolog.Nop()), zerolog.Nop())
	svc := service.NewGameService(service.Dependencies{
		Sessions: sessions,
		Configs:  NewMockConfigManager(),
		Catalog:  catalog,
		Lanes:    MockLanes{},
		Logger:   zerolog.Nop(),
	})

	info, err := svc.CreateSession(ctx, "", []string{"Aiko"})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := svc.GetSession(ctx, info.ID)
				if err != nil {
					t.Errorf("GetSession failed: %v", err)
					return
				}
				if got.LastAccessedAt.IsZero() {
					t.Error("Expected last access time")
				}
				if _, err := svc.ListSessions(ctx); err != nil {
					t.Errorf("ListSessions failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
