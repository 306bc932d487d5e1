package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Vehicle is the body sent to create a vehicle.
type Vehicle struct {
	Plate    string `json:"plate"`
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	FuelType string `json:"fuel_type"`
}

// FuelCard is the body sent to create a fuel card.
type FuelCard struct {
	Number    string          `json:"number"`
	FuelType  string          `json:"fuel_type"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Operation is the body sent to record a Carga or Consumo.
type Operation struct {
	Type       string          `json:"type"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	FuelCardID string          `json:"fuel_card_id"`
	VehicleID  string          `json:"vehicle_id,omitempty"`
}

// OperationResult is the part of the API reply the simulator logs.
type OperationResult struct {
	ID                   string          `json:"id"`
	Type                 string          `json:"type"`
	ClosingBalance       decimal.Decimal `json:"closing_balance"`
	ClosingBalanceLiters decimal.Decimal `json:"closing_balance_liters"`
}

var makes = map[string][]string{
	"Toyota":     {"Hilux", "Land Cruiser", "Corolla"},
	"Hyundai":    {"Accent", "H-1", "Tucson"},
	"Mitsubishi": {"L200", "Pajero"},
	"Kia":        {"Rio", "K2700"},
}

// Client talks to the fleet API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient creates an API client for apiURL.
func NewClient(apiURL, token string) *Client {
	return &Client{
		BaseURL: apiURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any, want int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("POST %s failed with status %d: %s", path, resp.StatusCode, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.post(ctx, "/auth/login", body, &resp, http.StatusOK); err != nil {
		return err
	}
	c.Token = resp.Token
	return nil
}

func (c *Client) createID(ctx context.Context, path string, body any) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, path, body, &created, http.StatusCreated); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("invalid ID in response")
	}
	return created.ID, nil
}

// CreateFuelCard registers a card and returns its ID.
func (c *Client) CreateFuelCard(ctx context.Context, card FuelCard) (string, error) {
	return c.createID(ctx, "/fuel-cards", card)
}

// CreateVehicle registers a vehicle and returns its ID.
func (c *Client) CreateVehicle(ctx context.Context, v Vehicle) (string, error) {
	return c.createID(ctx, "/vehicles", v)
}

// RecordOperation posts a fuel operation.
func (c *Client) RecordOperation(ctx context.Context, op Operation) (*OperationResult, error) {
	var result OperationResult
	if err := c.post(ctx, "/fuel-operations", op, &result, http.StatusCreated); err != nil {
		return nil, err
	}
	return &result, nil
}

func randomVehicle(i int) Vehicle {
	brands := make([]string, 0, len(makes))
	for b := range makes {
		brands = append(brands, b)
	}
	brand := brands[rand.Intn(len(brands))]
	return Vehicle{
		Plate:    fmt.Sprintf("SIM-%03d-%04d", i, rand.Intn(10000)),
		Make:     brand,
		Model:    makes[brand][rand.Intn(len(makes[brand]))],
		Year:     2015 + rand.Intn(10),
		FuelType: "diesel",
	}
}

// Simulator drives one card: it refills when the balance runs low and
// otherwise fuels a random vehicle.
type Simulator struct {
	Client     *Client
	CardID     string
	VehicleIDs []string
	Balance    decimal.Decimal
	RefillAt   decimal.Decimal
	Refill     decimal.Decimal
	Now        func() time.Time
}

// NextOperation decides the next operation from the current balance.
func (s *Simulator) NextOperation() Operation {
	op := Operation{Date: s.Now().UTC(), FuelCardID: s.CardID}
	if s.Balance.LessThan(s.RefillAt) || len(s.VehicleIDs) == 0 {
		op.Type = "Carga"
		op.Amount = s.Refill
		return op
	}
	op.Type = "Consumo"
	op.VehicleID = s.VehicleIDs[rand.Intn(len(s.VehicleIDs))]
	// 5% to 20% of the refill amount, in whole units.
	pct := decimal.NewFromInt(int64(5 + rand.Intn(16))).Div(decimal.NewFromInt(100))
	op.Amount = s.Refill.Mul(pct).Round(0)
	if !op.Amount.IsPositive() {
		op.Amount = decimal.NewFromInt(1)
	}
	return op
}

// Step records one operation and tracks the returned balance.
func (s *Simulator) Step(ctx context.Context) error {
	op := s.NextOperation()
	result, err := s.Client.RecordOperation(ctx, op)
	if err != nil {
		return err
	}
	s.Balance = result.ClosingBalance
	log.WithFields(log.Fields{
		"operation_id":   result.ID,
		"type":           op.Type,
		"amount":         op.Amount.String(),
		"vehicle_id":     op.VehicleID,
		"balance":        result.ClosingBalance.String(),
		"balance_liters": result.ClosingBalanceLiters.String(),
	}).Info("Recorded fuel operation")
	return nil
}

// Run steps every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := s.Step(ctx); err != nil {
				log.WithError(err).Error("Failed to record fuel operation")
			}
		}
	}
}

func getEnvInt(key string, def, minimum int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= minimum {
			return n
		}
	}
	return def
}

// setup logs in, creates the card and the vehicles.
func setup(ctx context.Context, c *Client, fleetSize int, unitPrice decimal.Decimal) (*Simulator, error) {
	if c.Token == "" {
		if err := c.Login(ctx, os.Getenv("SIM_USERNAME"), os.Getenv("SIM_PASSWORD")); err != nil {
			return nil, fmt.Errorf("login failed: %w", err)
		}
	}

	cardID, err := c.CreateFuelCard(ctx, FuelCard{
		Number:    fmt.Sprintf("SIM-%d", time.Now().UnixNano()),
		FuelType:  "diesel",
		UnitPrice: unitPrice,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("fuel_card_id", cardID).Info("Created fuel card")

	vehicleIDs := make([]string, 0, fleetSize)
	for i := 0; i < fleetSize; i++ {
		v := randomVehicle(i + 1)
		id, err := c.CreateVehicle(ctx, v)
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		log.WithFields(log.Fields{"vehicle_id": id, "plate": v.Plate, "make": v.Make}).Info("Created vehicle")
		vehicleIDs = append(vehicleIDs, id)
	}

	return &Simulator{
		Client:     c,
		CardID:     cardID,
		VehicleIDs: vehicleIDs,
		Balance:    decimal.Zero,
		RefillAt:   decimal.NewFromInt(500),
		Refill:     decimal.NewFromInt(2000),
		Now:        time.Now,
	}, nil
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	fleetSize := getEnvInt("FLEET_SIZE", 10, 1)
	interval := time.Duration(getEnvInt("SIM_TICK_SECONDS", 2, 1)) * time.Second
	unitPrice, err := decimal.NewFromString(os.Getenv("SIM_UNIT_PRICE"))
	if err != nil || !unitPrice.IsPositive() {
		unitPrice = decimal.NewFromInt(25)
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
		"unit_price": unitPrice.String(),
	}).Info("Starting fuel simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := setup(ctx, NewClient(apiURL, os.Getenv("SIM_AUTH_TOKEN")), fleetSize, unitPrice)
	if err != nil {
		log.WithError(err).Fatal("Simulation setup failed")
	}
	if len(sim.VehicleIDs) == 0 {
		log.Warn("No vehicles created, only refills will be recorded")
	}

	log.Info("Fuel simulation started")
	sim.Run(ctx, interval)
	log.Info("Fuel simulation stopped")
}
