package store

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"hotel-scraper/models"
)

// Store is the incremental persistence layer: an append-only JSONL log (the
// authoritative resume source), a flattened CSV export derived from it, and
// the ProcessedIndex rebuilt from the log at startup.
//
// Append is the only commit point. A hotel counts as processed if and only if
// Append returned nil for it; anything that crashed mid-parse is simply
// re-attempted on the next run.
type Store struct {
	logPath string
	csvPath string

	mu        sync.Mutex
	logFile   *os.File
	csvFile   *os.File
	csvWriter *csv.Writer
	index     map[string]struct{}
}

var csvHeader = []string{
	"detail_url", "hotel_code", "name", "city", "address", "phone",
	"rating", "price", "currency",
	"pet_allowed", "pet_fee", "pet_weight_limit", "pet_species", "pet_evidence",
	"amenities", "parking_info", "parking_fee", "nearby_places", "airports",
	"description", "scraped_at", "extraction_errors",
}

// Open replays the JSONL log to rebuild the processed index and opens both
// output files for appending. The CSV gets its header (re)written when the
// file is new or empty.
func Open(logPath, csvPath string) (*Store, error) {
	for _, p := range []string{logPath, csvPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output dir for %q: %w", p, err)
		}
	}

	index, err := loadIndex(logPath)
	if err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log %q: %w", logPath, err)
	}

	csvFile, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to open export %q: %w", csvPath, err)
	}

	s := &Store{
		logPath:   logPath,
		csvPath:   csvPath,
		logFile:   logFile,
		csvFile:   csvFile,
		csvWriter: csv.NewWriter(csvFile),
		index:     index,
	}

	info, err := csvFile.Stat()
	if err == nil && info.Size() == 0 {
		if err := s.csvWriter.Write(csvHeader); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to write export header: %w", err)
		}
		s.csvWriter.Flush()
	}

	if len(index) > 0 {
		log.Printf("Resuming: %d hotels already in %s\n", len(index), logPath)
	}

	return s, nil
}

// loadIndex scans the JSONL log and collects the detail URLs of every
// committed record. Truncated trailing lines from a crash mid-write are
// skipped; their records were never committed.
func loadIndex(logPath string) (map[string]struct{}, error) {
	index := make(map[string]struct{})

	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log %q: %w", logPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry struct {
			DetailURL string `json:"detail_url"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			log.Printf("Warning: skipping unreadable log line %d: %v\n", lineNo, err)
			continue
		}
		if entry.DetailURL != "" {
			index[entry.DetailURL] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log %q: %w", logPath, err)
	}

	return index, nil
}

// IsProcessed reports whether the hotel was already committed.
func (s *Store) IsProcessed(detailURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[detailURL]
	return ok
}

// ProcessedCount returns the number of committed hotels.
func (s *Store) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Append durably commits one hotel record: fsynced JSONL line first, since
// the log is the source of truth for resume, flattened CSV row second. On
// error the record stays unprocessed and will be re-attempted next run.
func (s *Store) Append(h *models.Hotel) error {
	if h.DetailURL == "" {
		return fmt.Errorf("refusing to append record without detail_url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[h.DetailURL]; ok {
		return fmt.Errorf("hotel %s already committed", h.DetailURL)
	}

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if _, err := s.logFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to log: %w", err)
	}
	if err := s.logFile.Sync(); err != nil {
		return fmt.Errorf("failed to flush log: %w", err)
	}

	// The record is committed from here on; a CSV failure only degrades the
	// derived export, which RebuildCSV can regenerate from the log.
	s.index[h.DetailURL] = struct{}{}

	if err := s.csvWriter.Write(flattenRecord(h)); err != nil {
		log.Printf("Warning: failed to write export row for %s: %v\n", h.DetailURL, err)
		return nil
	}
	s.csvWriter.Flush()
	if err := s.csvWriter.Error(); err != nil {
		log.Printf("Warning: failed to flush export row for %s: %v\n", h.DetailURL, err)
	}

	return nil
}

// RebuildCSV regenerates the flattened export from the log.
func (s *Store) RebuildCSV() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hotels, err := readLog(s.logPath)
	if err != nil {
		return err
	}

	if err := s.csvFile.Close(); err != nil {
		return fmt.Errorf("failed to close export: %w", err)
	}

	f, err := os.Create(s.csvPath)
	if err != nil {
		return fmt.Errorf("failed to recreate export: %w", err)
	}
	s.csvFile = f
	s.csvWriter = csv.NewWriter(f)

	if err := s.csvWriter.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, h := range hotels {
		if err := s.csvWriter.Write(flattenRecord(h)); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	s.csvWriter.Flush()
	return s.csvWriter.Error()
}

// ReadAll returns every committed record from the log, oldest first.
func (s *Store) ReadAll() ([]*models.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readLog(s.logPath)
}

func readLog(logPath string) ([]*models.Hotel, error) {
	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open log %q: %w", logPath, err)
	}
	defer f.Close()

	var hotels []*models.Hotel
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var h models.Hotel
		if err := json.Unmarshal([]byte(line), &h); err != nil {
			continue
		}
		hotels = append(hotels, &h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log %q: %w", logPath, err)
	}
	return hotels, nil
}

// Close flushes and closes both outputs.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.csvWriter.Flush()
	csvErr := s.csvFile.Close()
	logErr := s.logFile.Close()
	if logErr != nil {
		return logErr
	}
	return csvErr
}

// flattenRecord serializes nested structures into flat scalar columns,
// multi-valued fields joined with " | ".
func flattenRecord(h *models.Hotel) []string {
	rating := ""
	if h.Rating > 0 {
		rating = strconv.FormatFloat(h.Rating, 'f', -1, 64)
	}

	price, currency := "", ""
	if h.Price != nil {
		price = strconv.FormatFloat(h.Price.Amount, 'f', -1, 64)
		currency = h.Price.Currency
	}

	parkingInfo, parkingFee := "", ""
	if h.Parking != nil {
		parkingInfo = h.Parking.Info
		parkingFee = h.Parking.Fee
	}

	var nearby []string
	for _, p := range h.Nearby {
		nearby = append(nearby, joinNameDistance(p.Name, p.Distance))
	}
	var airports []string
	for _, a := range h.Airports {
		airports = append(airports, joinNameDistance(a.Name, a.Distance))
	}

	var errs []string
	for name, reason := range h.ExtractionErrors {
		errs = append(errs, name+"="+reason)
	}
	sort.Strings(errs)

	return []string{
		h.DetailURL,
		h.HotelCode,
		h.Name,
		h.City,
		h.Address,
		h.Phone,
		rating,
		price,
		currency,
		string(h.PetPolicy.Allowed),
		h.PetPolicy.Fee,
		h.PetPolicy.WeightLimit,
		h.PetPolicy.Species,
		h.PetPolicy.Evidence,
		strings.Join(h.Amenities, " | "),
		parkingInfo,
		parkingFee,
		strings.Join(nearby, " | "),
		strings.Join(airports, " | "),
		h.Description,
		h.ScrapedAt.Format(time.RFC3339),
		strings.Join(errs, "; "),
	}
}

func joinNameDistance(name, distance string) string {
	if distance == "" {
		return name
	}
	return name + " (" + distance + ")"
}
