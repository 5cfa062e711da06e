// Package companieshouse is a thin client for the UK Companies House public data API.
package companieshouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public data API endpoint
const DefaultBaseURL = "https://api.company-information.service.gov.uk"

// ErrNotConfigured is returned before any request is made when no API key is set
var ErrNotConfigured = errors.New("companies house api key is not configured")

// UpstreamError carries a non-2xx status from the registry
type UpstreamError struct {
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("companies house returned status %d", e.StatusCode)
}

// Client calls the registry with HTTP basic auth: API key as username, empty password
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New builds a client. A nil httpClient uses http.DefaultClient.
func New(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// --- registry payloads ---

type upstreamAddress struct {
	Premises     string `json:"premises"`
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

func (a upstreamAddress) String() string {
	parts := make([]string, 0, 7)
	for _, p := range []string{a.Premises, a.AddressLine1, a.AddressLine2, a.Locality, a.Region, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type upstreamSearch struct {
	TotalResults int `json:"total_results"`
	Items        []struct {
		CompanyNumber  string          `json:"company_number"`
		Title          string          `json:"title"`
		CompanyStatus  string          `json:"company_status"`
		CompanyType    string          `json:"company_type"`
		DateOfCreation string          `json:"date_of_creation"`
		AddressSnippet string          `json:"address_snippet"`
		Address        upstreamAddress `json:"address"`
	} `json:"items"`
}

type upstreamProfile struct {
	CompanyName             string          `json:"company_name"`
	CompanyNumber           string          `json:"company_number"`
	CompanyStatus           string          `json:"company_status"`
	Type                    string          `json:"type"`
	DateOfCreation          string          `json:"date_of_creation"`
	RegisteredOfficeAddress upstreamAddress `json:"registered_office_address"`
	SICCodes                []string        `json:"sic_codes"`
	Accounts                struct {
		AccountingReferenceDate struct {
			Day   string `json:"day"`
			Month string `json:"month"`
		} `json:"accounting_reference_date"`
		NextDue      string `json:"next_due"`
		LastAccounts struct {
			MadeUpTo string `json:"made_up_to"`
		} `json:"last_accounts"`
	} `json:"accounts"`
}

// --- reshaped results ---

// CompanySummary is one search hit
type CompanySummary struct {
	CompanyNumber  string `json:"companyNumber"`
	CompanyName    string `json:"companyName"`
	CompanyStatus  string `json:"companyStatus"`
	CompanyType    string `json:"companyType"`
	DateOfCreation string `json:"dateOfCreation"`
	Address        string `json:"address"`
}

// SearchResult is the reshaped search response
type SearchResult struct {
	TotalResults int              `json:"totalResults"`
	Items        []CompanySummary `json:"items"`
}

// CompanyProfile is the reshaped company profile. YearEndMonth/Day come from
// the accounting reference date and are nil when the registry omits it.
type CompanyProfile struct {
	CompanyNumber   string   `json:"companyNumber"`
	CompanyName     string   `json:"companyName"`
	CompanyStatus   string   `json:"companyStatus"`
	CompanyType     string   `json:"companyType"`
	DateOfCreation  string   `json:"dateOfCreation"`
	Address         string   `json:"address"`
	SICCodes        []string `json:"sicCodes"`
	YearEndMonth    *int     `json:"yearEndMonth"`
	YearEndDay      *int     `json:"yearEndDay"`
	AccountsNextDue string   `json:"accountsNextDue"`
	LastAccountsTo  string   `json:"lastAccountsMadeUpTo"`
}

// Search runs a free-text company search
func (c *Client) Search(ctx context.Context, query string, itemsPerPage int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if itemsPerPage > 0 {
		params.Set("items_per_page", strconv.Itoa(itemsPerPage))
	}

	var raw upstreamSearch
	if err := c.get(ctx, "/search/companies?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	res := &SearchResult{TotalResults: raw.TotalResults, Items: make([]CompanySummary, 0, len(raw.Items))}
	for _, it := range raw.Items {
		addr := it.AddressSnippet
		if addr == "" {
			addr = it.Address.String()
		}
		res.Items = append(res.Items, CompanySummary{
			CompanyNumber:  it.CompanyNumber,
			CompanyName:    it.Title,
			CompanyStatus:  it.CompanyStatus,
			CompanyType:    it.CompanyType,
			DateOfCreation: it.DateOfCreation,
			Address:        addr,
		})
	}
	return res, nil
}

// Company fetches one company profile by number
func (c *Client) Company(ctx context.Context, number string) (*CompanyProfile, error) {
	var raw upstreamProfile
	if err := c.get(ctx, "/company/"+url.PathEscape(strings.ToUpper(strings.TrimSpace(number))), &raw); err != nil {
		return nil, err
	}

	profile := &CompanyProfile{
		CompanyNumber:   raw.CompanyNumber,
		CompanyName:     raw.CompanyName,
		CompanyStatus:   raw.CompanyStatus,
		CompanyType:     raw.Type,
		DateOfCreation:  raw.DateOfCreation,
		Address:         raw.RegisteredOfficeAddress.String(),
		SICCodes:        raw.SICCodes,
		AccountsNextDue: raw.Accounts.NextDue,
		LastAccountsTo:  raw.Accounts.LastAccounts.MadeUpTo,
	}
	if profile.SICCodes == nil {
		profile.SICCodes = []string{}
	}
	ard := raw.Accounts.AccountingReferenceDate
	if m, err := strconv.Atoi(ard.Month); err == nil {
		if d, err := strconv.Atoi(ard.Day); err == nil {
			profile.YearEndMonth, profile.YearEndDay = &m, &d
		}
	}
	return profile, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build companies house request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call companies house: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode companies house response: %w", err)
	}
	return nil
}

// NewHTTPClient returns the http.Client used in production wiring
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
