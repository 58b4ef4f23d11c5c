package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// ErrNotConfigured is returned when a Solr store is missing its host or core
var ErrNotConfigured = errors.New("solr is not configured")

// SolrConfig defines the Solr connection parameters
type SolrConfig struct {
	Host        string
	Core        string
	Handler     string
	ConnTimeout time.Duration
	ReadTimeout time.Duration
	Verbose     bool
}

// SolrRequestParams contains the query parameters for a Solr request
type SolrRequestParams struct {
	Start int      `json:"start"`
	Rows  int      `json:"rows"`
	Fl    []string `json:"fl,omitempty"`
	Q     string   `json:"q,omitempty"`
	Sort  string   `json:"sort,omitempty"`
}

// SolrResponseHeader contains the header portion of the response from the Solr API
type SolrResponseHeader struct {
	Status int `json:"status,omitempty"`
	QTime  int `json:"QTime,omitempty"`
}

// SolrDocument is a single history record in a Solr response
type SolrDocument struct {
	ID    string  `json:"id,omitempty"`
	URL   string  `json:"url,omitempty"`
	Score float32 `json:"score,omitempty"`
}

// SolrResponseDocuments is a set of result records for a Solr request, along with some metadata
type SolrResponseDocuments struct {
	NumFound int            `json:"numFound,omitempty"`
	Start    int            `json:"start,omitempty"`
	MaxScore float32        `json:"maxScore,omitempty"`
	Docs     []SolrDocument `json:"docs,omitempty"`
}

// SolrError contains the error portion of the response from the Solr API, when a failure occurs
type SolrError struct {
	Metadata []string `json:"metadata,omitempty"`
	Msg      string   `json:"msg,omitempty"`
	Code     int      `json:"code,omitempty"`
}

// SolrResponse contains the response from the Solr API
type SolrResponse struct {
	ResponseHeader SolrResponseHeader    `json:"responseHeader,omitempty"`
	Response       SolrResponseDocuments `json:"response,omitempty"`
	Error          SolrError             `json:"error,omitempty"`
}

// Solr is a history store backed by a Solr core holding id/url/score documents
type Solr struct {
	url     string
	pingURL string
	client  *http.Client
	verbose bool
}

// NewSolr creates a Solr-backed history store
func NewSolr(cfg SolrConfig) (*Solr, error) {
	if cfg.Host == "" || cfg.Core == "" {
		return nil, ErrNotConfigured
	}

	handler := cfg.Handler
	if handler == "" {
		handler = "select"
	}

	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = 5 * time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}

	base := fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Host, "/"), cfg.Core)

	s := &Solr{
		url:     fmt.Sprintf("%s/%s", base, strings.TrimLeft(handler, "/")),
		pingURL: fmt.Sprintf("%s/admin/ping", base),
		verbose: cfg.Verbose,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   connTimeout,
					KeepAlive: 60 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	log.Info().Msgf("[SOLR] history url = [%s]", s.url)

	return s, nil
}

// Suggestions queries Solr for history entries matching query
func (s *Solr) Suggestions(ctx context.Context, query string, limit int) ([]suggest.SearchResult, error) {
	params := SolrRequestParams{
		Start: 0,
		Rows:  limit,
		Fl:    []string{"id", "url", "score"},
		Q:     query,
		Sort:  "score desc",
	}

	solrRes, err := s.query(ctx, params)
	if err != nil {
		return nil, err
	}

	if s.verbose {
		s.logScores(solrRes.Response.Docs)
	}

	out := make([]suggest.SearchResult, 0, len(solrRes.Response.Docs))
	for _, doc := range solrRes.Response.Docs {
		if doc.URL == "" {
			continue
		}
		id := doc.ID
		if id == "" {
			id = doc.URL
		}
		out = append(out, suggest.SearchResult{ID: id, URL: doc.URL, Score: float64(doc.Score)})
	}

	return out, nil
}

// Ping checks that the Solr core is reachable
func (s *Solr) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pingURL, nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", s.pingURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("ping %s: status %d", s.pingURL, res.StatusCode)
	}

	return nil
}

func (s *Solr) query(ctx context.Context, params SolrRequestParams) (*SolrResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		log.Error().Err(err).Msg("NewRequest() failed")
		return nil, fmt.Errorf("create solr request: %w", err)
	}

	q := req.URL.Query()

	q.Add("q", params.Q)
	q.Add("start", fmt.Sprintf("%d", params.Start))
	q.Add("rows", fmt.Sprintf("%d", params.Rows))
	q.Add("sort", params.Sort)

	for _, val := range params.Fl {
		q.Add("fl", val)
	}

	req.URL.RawQuery = q.Encode()

	log.Debug().Msgf("[SOLR] GET req: [%s]", req.URL.RawQuery)

	start := time.Now()
	res, err := s.client.Do(req)
	elapsedMS := int64(time.Since(start) / time.Millisecond)

	if err != nil {
		status := http.StatusBadRequest
		errMsg := err.Error()
		if strings.Contains(errMsg, "Timeout") {
			status = http.StatusRequestTimeout
			errMsg = fmt.Sprintf("%s timed out", s.url)
		} else if strings.Contains(errMsg, "connection refused") {
			status = http.StatusServiceUnavailable
			errMsg = fmt.Sprintf("%s refused connection", s.url)
		}

		log.Error().Msgf("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", s.url, status, errMsg, elapsedMS)
		return nil, fmt.Errorf("solr request: %w", err)
	}

	defer res.Body.Close()

	var solrRes SolrResponse

	start = time.Now()
	if err := json.NewDecoder(res.Body).Decode(&solrRes); err != nil {
		log.Error().Msgf("Failed response from GET %s - %d:%s. Elapsed Time: %d (ms)", s.url, http.StatusInternalServerError, err.Error(), elapsedMS)
		return nil, fmt.Errorf("decode solr response: %w", err)
	}
	log.Debug().Msgf("[SOLR] json dec: %5d ms", int64(time.Since(start)/time.Millisecond))

	logHeader := fmt.Sprintf("[SOLR] res: header: { status = %d, QTime = %d }", solrRes.ResponseHeader.Status, solrRes.ResponseHeader.QTime)

	if solrRes.ResponseHeader.Status != 0 {
		log.Error().Msgf("%s, error: { code = %d, msg = %s }", logHeader, solrRes.Error.Code, solrRes.Error.Msg)
		return nil, fmt.Errorf("solr error %d - %s", solrRes.Error.Code, solrRes.Error.Msg)
	}

	log.Debug().Msgf("%s, { start = %d, rows = %d, total = %d, maxScore = %0.2f }", logHeader, solrRes.Response.Start, len(solrRes.Response.Docs), solrRes.Response.NumFound, solrRes.Response.MaxScore)

	return &solrRes, nil
}

// ScoreStats summarizes the score distribution of a result set
type ScoreStats struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
}

// Stats computes score statistics over docs
func Stats(docs []SolrDocument) ScoreStats {
	if len(docs) == 0 {
		return ScoreStats{}
	}

	scores := make([]float64, 0, len(docs))
	for _, doc := range docs {
		scores = append(scores, float64(doc.Score))
	}

	sort.Float64s(scores)

	st := ScoreStats{
		Count:  len(scores),
		Mean:   stat.Mean(scores, nil),
		Median: stat.Quantile(0.5, stat.Empirical, scores, nil),
	}

	if len(scores) > 1 {
		st.StdDev = math.Sqrt(stat.Variance(scores, nil))
	}

	return st
}

func (s *Solr) logScores(docs []SolrDocument) {
	for i, doc := range docs {
		log.Debug().Msgf("%03d %03.2f %s", i, doc.Score, doc.URL)
	}

	st := Stats(docs)

	log.Debug().Msgf("len      : %v", st.Count)
	log.Debug().Msgf("mean     : %v", st.Mean)
	log.Debug().Msgf("median   : %v", st.Median)
	log.Debug().Msgf("stddev   : %v", st.StdDev)
}
