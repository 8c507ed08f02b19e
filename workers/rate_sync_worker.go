package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/Serhat17/bonkback-sub000/models"
	"github.com/Serhat17/bonkback-sub000/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RateSyncClient polls the price service and mirrors conversion rates
// locally. The ledger only ever reads the mirror — a rate is consulted once
// at transaction creation and frozen onto the row, so a stale mirror delays
// new transactions at worst, it never rewrites existing ones.
type RateSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewRateSyncClient(db *gorm.DB) *RateSyncClient {
	baseURL := os.Getenv("RATE_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("RATE_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("BONKBACK_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("BONKBACK_SERVICE_TOKEN environment variable is required for rate sync")
	}

	return &RateSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		DB:         db,
		HTTPClient: utils.HTTPClient,
	}
}

type remoteRate struct {
	Token        string    `json:"token"`
	FiatCurrency string    `json:"fiat_currency"`
	BonkPerUnit  int64     `json:"bonk_per_unit"`
	FetchedAt    time.Time `json:"fetched_at"`
}

func (c *RateSyncClient) GetCurrentRates(ctx context.Context) ([]remoteRate, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/rates", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call rate service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rate service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Rates []remoteRate `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode rate service response: %w", err)
	}

	return response.Rates, nil
}

// PollRates keeps the local rate mirror fresh.
func PollRates(ctx context.Context, client *RateSyncClient, pollInterval time.Duration) {
	log.Println("Starting conversion rate polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Rate polling stopped.")
			return
		case <-ticker.C:
			rates, err := client.GetCurrentRates(ctx)
			if err != nil {
				log.Printf("❌ Error polling rates: %v", err)
				continue
			}

			if len(rates) == 0 {
				continue
			}

			for _, r := range rates {
				row := models.ConversionRate{
					ID:           uuid.NewString(),
					Token:        r.Token,
					FiatCurrency: r.FiatCurrency,
					BonkPerUnit:  r.BonkPerUnit,
					FetchedAt:    r.FetchedAt,
				}
				if err := client.DB.Clauses(clause.OnConflict{
					Columns: []clause.Column{{Name: "token"}, {Name: "fiat_currency"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"bonk_per_unit",
						"fetched_at",
						"updated_at",
					}),
				}).Create(&row).Error; err != nil {
					log.Printf("❌ Failed to upsert rate %s/%s: %v", r.Token, r.FiatCurrency, err)
				}
			}

			log.Printf("📥 Synced %d conversion rate(s)", len(rates))
		}
	}
}
