package main

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/uvalib/virgo4-history-suggestor-ws/history"
	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// exportedVisit is one record of a browser history JSON export
type exportedVisit struct {
	GUID       string `json:"guid"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	VisitCount int    `json:"visitCount"`
}

// convert collapses exported visits into seed entries. Records without a URL
// are dropped; repeated URLs have their visit counts summed.
func convert(visits []exportedVisit, minVisits int) history.Seed {
	var seed history.Seed
	index := make(map[string]int)

	for _, v := range visits {
		url := strings.TrimSpace(v.URL)
		if url == "" {
			continue
		}

		count := v.VisitCount
		if count <= 0 {
			count = 1
		}

		if i, ok := index[url]; ok {
			seed.Entries[i].Score += float64(count)
			continue
		}

		id := v.GUID
		if id == "" {
			id = url
		}

		index[url] = len(seed.Entries)
		seed.Entries = append(seed.Entries, suggest.SearchResult{ID: id, URL: url, Score: float64(count)})
	}

	if minVisits > 1 {
		kept := seed.Entries[:0]
		for _, e := range seed.Entries {
			if e.Score >= float64(minVisits) {
				kept = append(kept, e)
			}
		}
		seed.Entries = kept
	}

	return seed
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var inFile string
	var outFile string
	var minVisits int
	flag.StringVar(&inFile, "in", "", "browser history export (JSON array of {guid, url, title, visitCount})")
	flag.StringVar(&outFile, "out", "history.yaml", "seed file to write")
	flag.IntVar(&minVisits, "min", 1, "drop entries visited fewer times than this")
	flag.Parse()

	if inFile == "" {
		log.Fatal().Msg("in is required")
	}

	jsonBytes, err := os.ReadFile(inFile)
	if err != nil {
		log.Fatal().Err(err).Msg("read export")
	}

	var visits []exportedVisit
	if err := json.Unmarshal(jsonBytes, &visits); err != nil {
		log.Fatal().Err(err).Msg("parse export")
	}

	seed := convert(visits, minVisits)

	if err := history.WriteSeed(outFile, seed); err != nil {
		log.Fatal().Err(err).Msg("write seed")
	}

	log.Info().Msgf("wrote %d history entries to %s", len(seed.Entries), outFile)
}
