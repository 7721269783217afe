package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/mongo"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/redis"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/auth"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/config"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	httpapi "github.com/robertarktes/hotel-reservations-and-rooms/internal/http"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/idempotency"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/inventory"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/ledger"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/rateLimit"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const jwtSecret = "integration-test-secret-0123456789"

const schema = `
	CREATE DATABASE IF NOT EXISTS hrr;
	CREATE TABLE IF NOT EXISTS hrr.rooms (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL,
		hotel_name TEXT NOT NULL,
		location TEXT NOT NULL,
		room_type TEXT NOT NULL CHECK (room_type IN ('Single', 'Double', 'Triple', 'Family')),
		price INT8 NOT NULL CHECK (price > 0),
		images TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[],
		available BOOL NOT NULL DEFAULT true
	);
	CREATE TABLE IF NOT EXISTS hrr.bookings (
		id UUID PRIMARY KEY,
		room_id UUID NOT NULL,
		customer_id UUID NOT NULL,
		guest_name TEXT NOT NULL,
		guest_age INT NOT NULL,
		guest_gender TEXT NOT NULL,
		booking_date DATE NOT NULL,
		leaving_date DATE NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'CANCELLED', 'COMPLETED')),
		archived BOOL NOT NULL DEFAULT false,
		INDEX (room_id, status),
		INDEX (customer_id)
	);
	CREATE TABLE IF NOT EXISTS hrr.outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT,
		aggregate_id UUID,
		event_type TEXT,
		payload_json BYTES,
		created_at TIMESTAMPTZ DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT,
		dedupe_key TEXT
	);
`

type env struct {
	server     *httptest.Server
	archive    *mongo.Collection
	sellerID   uuid.UUID
	customerID uuid.UUID
	seller     string
	customer   string
}

func startContainer(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Terminate(ctx) })
	return c
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := observability.NewLogger()

	crdbContainer := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "cockroachdb/cockroach:v24.1.1",
		Cmd:          []string{"start-single-node", "--insecure"},
		ExposedPorts: []string{"26257/tcp"},
		WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
	})
	mongoContainer := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	redisContainer := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	})
	rabbitContainer := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-management",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete"),
	})

	crdbDSN, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}
	pool, err := pgxpool.New(ctx, crdbDSN+"/hrr?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	repo := crdb.NewRepository(pool)

	mongoURI, err := mongoContainer.Endpoint(ctx, "mongodb")
	if err != nil {
		t.Fatal(err)
	}
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mongoClient.Disconnect(ctx) })
	archiveRepo := mongoadapter.NewArchiveRepository(mongoClient.Database("hrr"), logger)

	redisAddr, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	redisClient := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	t.Cleanup(func() { redisClient.Close() })
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitEndpoint, err := rabbitContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	rabbitConn, err := amqp.Dial(fmt.Sprintf("amqp://guest:guest@%s/", rabbitEndpoint))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rabbitConn.Close() })
	publisher, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{JWTSecret: jwtSecret, RoomLockTTL: 5 * time.Second}
	inv := inventory.NewService(repo, publisher, logger)
	led := ledger.NewService(repo, cache, archiveRepo, publisher, logger, cfg.RoomLockTTL)
	handlers := httpapi.NewHandlers(cfg, inv, led, nil, idemp, logger)
	router := httpapi.SetupRouter(handlers, logger, auth.NewVerifier(jwtSecret), rl, idemp)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	sellerID := uuid.New()
	customerID := uuid.New()
	sellerToken, err := auth.NewToken(jwtSecret, sellerID, domain.RoleSeller, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	customerToken, err := auth.NewToken(jwtSecret, customerID, domain.RoleCustomer, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	return &env{
		server:     server,
		archive:    mongoClient.Database("hrr").Collection("booking_archive"),
		sellerID:   sellerID,
		seller:     sellerToken,
		customerID: customerID,
		customer:   customerToken,
	}
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, data
}

func (e *env) doWithKey(t *testing.T, path, token, key string, body interface{}) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func TestBookingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	e := setupEnv(t)
	ctx := context.Background()

	checkIn := time.Now().AddDate(0, 1, 0).Format(time.DateOnly)
	checkOut := time.Now().AddDate(0, 1, 4).Format(time.DateOnly)

	// Seller lists a room.
	status, body := e.do(t, http.MethodPost, "/v1/rooms", e.seller, map[string]interface{}{
		"hotel_name": "Seaside",
		"location":   "Lisbon",
		"room_type":  "Double",
		"price":      12000,
		"images":     []string{"https://img.example/1.jpg"},
	})
	if status != http.StatusCreated {
		t.Fatalf("create room: status %d, body %s", status, body)
	}
	var room struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(body, &room); err != nil {
		t.Fatal(err)
	}

	// Customer sees the room in the open listing.
	status, body = e.do(t, http.MethodGet, "/v1/rooms", e.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("list rooms: status %d", status)
	}
	var listing struct {
		Rooms []json.RawMessage `json:"rooms"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Rooms) != 1 {
		t.Fatalf("expected one available room, got %d", len(listing.Rooms))
	}

	// A customer cannot manage rooms, a seller cannot book.
	status, _ = e.do(t, http.MethodPost, "/v1/rooms", e.customer, map[string]interface{}{
		"hotel_name": "x", "location": "y", "room_type": "Single", "price": 1,
	})
	if status != http.StatusForbidden {
		t.Errorf("customer creating room: expected 403, got %d", status)
	}
	bookingReq := map[string]interface{}{
		"room_id":      room.ID,
		"guest_name":   "Alice",
		"guest_age":    30,
		"guest_gender": "female",
		"booking_date": checkIn,
		"leaving_date": checkOut,
	}
	status, _ = e.do(t, http.MethodPost, "/v1/bookings", e.seller, bookingReq)
	if status != http.StatusForbidden {
		t.Errorf("seller booking: expected 403, got %d", status)
	}

	// Customer books; the same Idempotency-Key replays the stored response
	// instead of double-booking.
	key := uuid.New().String()
	status, body = e.doWithKey(t, "/v1/bookings", e.customer, key, bookingReq)
	if status != http.StatusCreated {
		t.Fatalf("create booking: status %d, body %s", status, body)
	}
	var booking struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	if err := json.Unmarshal(body, &booking); err != nil {
		t.Fatal(err)
	}
	if booking.Status != "ACTIVE" {
		t.Errorf("expected ACTIVE booking, got %s", booking.Status)
	}

	status, body = e.doWithKey(t, "/v1/bookings", e.customer, key, bookingReq)
	if status != http.StatusCreated {
		t.Fatalf("idempotent replay: status %d, body %s", status, body)
	}
	var replay struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(body, &replay); err != nil {
		t.Fatal(err)
	}
	if replay.ID != booking.ID {
		t.Errorf("replay returned a different booking: %s vs %s", replay.ID, booking.ID)
	}

	// An overlapping attempt with a fresh key conflicts.
	status, _ = e.do(t, http.MethodPost, "/v1/bookings", e.customer, bookingReq)
	if status != http.StatusConflict {
		t.Errorf("overlapping booking: expected 409, got %d", status)
	}

	// Another customer cannot cancel someone else's booking.
	otherCustomer, err := auth.NewToken(jwtSecret, uuid.New(), domain.RoleCustomer, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	status, _ = e.do(t, http.MethodDelete, "/v1/bookings/"+booking.ID.String(), otherCustomer, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-owner cancel: expected 403, got %d", status)
	}

	// A room the seller has switched off cannot be booked, free dates or not.
	status, body = e.do(t, http.MethodPost, "/v1/rooms", e.seller, map[string]interface{}{
		"hotel_name": "Seaside",
		"location":   "Lisbon",
		"room_type":  "Single",
		"price":      8000,
		"available":  false,
	})
	if status != http.StatusCreated {
		t.Fatalf("create unavailable room: status %d, body %s", status, body)
	}
	var offRoom struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(body, &offRoom); err != nil {
		t.Fatal(err)
	}
	status, _ = e.do(t, http.MethodPost, "/v1/bookings", e.customer, map[string]interface{}{
		"room_id":      offRoom.ID,
		"guest_name":   "Alice",
		"guest_age":    30,
		"guest_gender": "female",
		"booking_date": checkIn,
		"leaving_date": checkOut,
	})
	if status != http.StatusConflict {
		t.Errorf("booking unavailable room: expected 409, got %d", status)
	}

	// The seller sees the guest on their dashboard.
	status, body = e.do(t, http.MethodGet, "/v1/bookings", e.seller, nil)
	if status != http.StatusOK {
		t.Fatalf("seller bookings: status %d", status)
	}
	var sellerView struct {
		Bookings []struct {
			GuestName string `json:"guest_name"`
			HotelName string `json:"hotel_name"`
		} `json:"bookings"`
	}
	if err := json.Unmarshal(body, &sellerView); err != nil {
		t.Fatal(err)
	}
	if len(sellerView.Bookings) != 1 || sellerView.Bookings[0].GuestName != "Alice" {
		t.Errorf("unexpected seller view: %s", body)
	}

	// The room cannot be withdrawn while the booking is active.
	status, _ = e.do(t, http.MethodDelete, "/v1/rooms/"+room.ID.String(), e.seller, nil)
	if status != http.StatusConflict {
		t.Errorf("delete booked room: expected 409, got %d", status)
	}

	// Cancel, then the booking lives only in the history view.
	status, body = e.do(t, http.MethodDelete, "/v1/bookings/"+booking.ID.String(), e.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("cancel booking: status %d, body %s", status, body)
	}
	status, _ = e.do(t, http.MethodDelete, "/v1/bookings/"+booking.ID.String(), e.customer, nil)
	if status != http.StatusConflict {
		t.Errorf("double cancel: expected 409, got %d", status)
	}

	status, body = e.do(t, http.MethodGet, "/v1/bookings", e.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("customer bookings: status %d", status)
	}
	var activeView struct {
		Bookings []json.RawMessage `json:"bookings"`
	}
	if err := json.Unmarshal(body, &activeView); err != nil {
		t.Fatal(err)
	}
	if len(activeView.Bookings) != 0 {
		t.Errorf("expected empty active view after cancel, got %s", body)
	}

	status, body = e.do(t, http.MethodGet, "/v1/bookings/history", e.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("customer history: status %d", status)
	}
	var historyView struct {
		Bookings []struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"bookings"`
	}
	if err := json.Unmarshal(body, &historyView); err != nil {
		t.Fatal(err)
	}
	if len(historyView.Bookings) != 1 || historyView.Bookings[0].Status != "CANCELLED" {
		t.Errorf("unexpected history view: %s", body)
	}

	// The archive mirror carries the denormalized record.
	count, err := e.archive.CountDocuments(ctx, bson.M{"_id": booking.ID})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected one archive document, got %d", count)
	}

	// With no active bookings left the room can go.
	status, _ = e.do(t, http.MethodDelete, "/v1/rooms/"+room.ID.String(), e.seller, nil)
	if status != http.StatusNoContent {
		t.Errorf("delete room: expected 204, got %d", status)
	}

	// History survives the room deletion.
	status, body = e.do(t, http.MethodGet, "/v1/bookings/history", e.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("history after delete: status %d", status)
	}
	if err := json.Unmarshal(body, &historyView); err != nil {
		t.Fatal(err)
	}
	if len(historyView.Bookings) != 1 {
		t.Errorf("expected history to survive room deletion, got %s", body)
	}

	// No token, no access.
	status, _ = e.do(t, http.MethodGet, "/v1/bookings", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated: expected 401, got %d", status)
	}
}
