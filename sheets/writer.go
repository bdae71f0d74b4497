package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"hotel-scraper/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer handles exporting hotel records to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer. Credentials come from a
// service account JSON file, or from GOOGLE_SHEETS_CREDENTIALS when no path
// is given.
func NewWriter(spreadsheetID string, credentialsPath string) (*Writer, error) {
	ctx := context.Background()

	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		credsJSON = []byte(credsEnv)
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON: %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

// WriteHotels writes hotel records to the spreadsheet.
// If clearFirst is true, clears existing data before writing.
func (w *Writer) WriteHotels(hotels []*models.Hotel, clearFirst bool) error {
	if len(hotels) == 0 {
		log.Println("No hotels to write")
		return nil
	}

	var values [][]interface{}

	header := []interface{}{
		"Name", "City", "Link", "Hotel Code", "Phone", "Rating",
		"Price", "Currency", "Pets", "Pet Fee", "Pet Evidence", "Scraped At",
	}
	values = append(values, header)

	for _, h := range hotels {
		price, currency := "", ""
		if h.Price != nil {
			price = fmt.Sprintf("%.2f", h.Price.Amount)
			currency = h.Price.Currency
		}
		row := []interface{}{
			h.Name,
			h.City,
			h.DetailURL,
			h.HotelCode,
			h.Phone,
			h.Rating,
			price,
			currency,
			string(h.PetPolicy.Allowed),
			h.PetPolicy.Fee,
			h.PetPolicy.Evidence,
			h.ScrapedAt.Format(time.RFC3339),
		}
		values = append(values, row)
	}

	range_ := "Sheet1!A1"

	if clearFirst {
		clearReq := &sheets.ClearValuesRequest{}
		_, err := w.service.Spreadsheets.Values.Clear(w.spreadsheetID, range_, clearReq).Do()
		if err != nil {
			log.Printf("Warning: Failed to clear existing data: %v\n", err)
			// Continue anyway
		}
	}

	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := w.service.Spreadsheets.Values.Update(w.spreadsheetID, range_, valueRange).
		ValueInputOption("RAW").
		Do()
	if err != nil {
		return fmt.Errorf("failed to write to spreadsheet: %w", err)
	}

	log.Printf("Wrote %d hotels to spreadsheet %s\n", len(hotels), w.spreadsheetID)
	return nil
}
