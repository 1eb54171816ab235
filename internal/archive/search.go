package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"exohunt/internal/logging"
	"exohunt/internal/services"
	"exohunt/internal/textutil"
)

// Query selects the light curves to search for.
type Query struct {
	// Target is a catalog identifier ("TIC 25155310", "KIC 11904151",
	// "EPIC 201367065") or a name resolvable by the archive ("Kepler-10").
	Target string
	// Author filters by pipeline provenance (SPOC, Kepler, K2, QLP...). Empty
	// accepts every author.
	Author string
	// ExposureTime filters by cadence in seconds. Zero accepts every cadence.
	ExposureTime float64
	// Mission overrides the client's default mission for free-form names.
	// Empty or "all" leaves the collection unfiltered.
	Mission string
}

func (q Query) cacheKey(defaultMission string) string {
	mission := q.Mission
	if mission == "" {
		mission = defaultMission
	}
	return strings.Join([]string{
		folder.String(strings.TrimSpace(q.Target)),
		folder.String(q.Author),
		strconv.FormatFloat(q.ExposureTime, 'g', -1, 64),
		folder.String(mission),
	}, "|")
}

// Segment is one downloadable light-curve product.
type Segment struct {
	Mission         string
	ObsID           string
	ProductFilename string
	DataURI         string
	// Sequence is the TESS sector, Kepler quarter or K2 campaign.
	Sequence     int
	TargetID     string
	ExposureTime float64
	Author       string
}

// UniqueID names the segment in output files: the product filename stem when
// known, otherwise <mission>_<S|Q|C><n>_<targetid>.
func (s Segment) UniqueID() string {
	if name := strings.TrimSpace(s.ProductFilename); name != "" {
		base := path.Base(name)
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return fmt.Sprintf("%s_%s%d_%s", textutil.MissionLabel(s.Mission), SequencePrefix(s.Mission), s.Sequence, s.TargetID)
}

var catalogPattern = regexp.MustCompile(`(?i)^\s*(tic|kic|epic)[\s_-]*0*(\d+)\s*$`)

// ParseCatalogID recognises TIC/KIC/EPIC identifiers and returns the mission
// they belong to and the numeric id.
func ParseCatalogID(target string) (mission string, id int64, ok bool) {
	m := catalogPattern.FindStringSubmatch(target)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	switch strings.ToUpper(m[1]) {
	case "KIC":
		return MissionKepler, n, true
	case "EPIC":
		return MissionK2, n, true
	default:
		return MissionTESS, n, true
	}
}

func archiveTargetName(mission string, id int64) string {
	switch mission {
	case MissionKepler:
		return fmt.Sprintf("kplr%09d", id)
	case MissionK2:
		return fmt.Sprintf("ktwo%d", id)
	default:
		return strconv.FormatInt(id, 10)
	}
}

// flexString accepts JSON strings and numbers; MAST is inconsistent about
// which it uses for ids.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type filter struct {
	ParamName string `json:"paramName"`
	Values    []any  `json:"values"`
}

type observation struct {
	ObsID          flexString `json:"obsid"`
	Collection     string     `json:"obs_collection"`
	TargetName     string     `json:"target_name"`
	Provenance     string     `json:"provenance_name"`
	SequenceNumber *float64   `json:"sequence_number"`
	ExposureTime   *float64   `json:"t_exptime"`
}

type observationResponse struct {
	Status string        `json:"status"`
	Msg    string        `json:"msg"`
	Data   []observation `json:"data"`
}

type product struct {
	ObsID           flexString `json:"obsID"`
	ProductFilename string     `json:"productFilename"`
	DataURI         string     `json:"dataURI"`
	SubGroup        string     `json:"productSubGroupDescription"`
	ProductType     string     `json:"productType"`
}

type productResponse struct {
	Status string    `json:"status"`
	Data   []product `json:"data"`
}

type nameLookupResponse struct {
	ResolvedCoordinate []struct {
		RA            float64 `json:"ra"`
		Dec           float64 `json:"decl"`
		CanonicalName string  `json:"canonicalName"`
	} `json:"resolvedCoordinate"`
}

// Search lists the light-curve products matching q, ordered by sequence.
// An empty result is not an error.
func (c *Client) Search(ctx context.Context, q Query) ([]Segment, error) {
	target := strings.TrimSpace(q.Target)
	if target == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "search", "target required", nil)
	}
	key := q.cacheKey(c.opts.Mission)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return append([]Segment(nil), cached.([]Segment)...), nil
		}
	}

	mission := c.opts.Mission
	if q.Mission != "" {
		mission = CanonicalMission(q.Mission)
	}
	filters := []filter{
		{ParamName: "dataproduct_type", Values: []any{"timeseries"}},
	}
	if author := strings.TrimSpace(q.Author); author != "" {
		filters = append(filters, filter{ParamName: "provenance_name", Values: []any{author}})
	}

	var resp observationResponse
	if catMission, id, ok := ParseCatalogID(target); ok {
		mission = catMission
		filters = append(filters,
			filter{ParamName: "obs_collection", Values: []any{mission}},
			filter{ParamName: "target_name", Values: []any{archiveTargetName(mission, id)}},
		)
		params := map[string]any{"columns": "*", "filters": filters}
		if err := c.invoke(ctx, "Mast.Caom.Filtered", params, &resp); err != nil {
			return nil, services.Wrap(services.ErrTransient, "fetch", "search", target, err)
		}
	} else {
		ra, dec, err := c.resolveName(ctx, target)
		if err != nil {
			return nil, err
		}
		if !AllMissions(mission) {
			filters = append(filters, filter{ParamName: "obs_collection", Values: []any{mission}})
		}
		params := map[string]any{
			"columns":  "*",
			"filters":  filters,
			"position": fmt.Sprintf("%g, %g, %g", ra, dec, c.opts.ConeRadiusArcsec/3600),
		}
		if err := c.invoke(ctx, "Mast.Caom.Filtered.Position", params, &resp); err != nil {
			return nil, services.Wrap(services.ErrTransient, "fetch", "cone search", target, err)
		}
	}

	var segments []Segment
	for _, obs := range resp.Data {
		if !exposureMatches(obs.ExposureTime, q.ExposureTime) {
			continue
		}
		products, err := c.products(ctx, string(obs.ObsID))
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "fetch", "list products", string(obs.ObsID), err)
		}
		for _, p := range products {
			if !isLightCurveProduct(p) {
				continue
			}
			segments = append(segments, newSegment(obs, p, mission))
		}
	}
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].Sequence != segments[j].Sequence {
			return segments[i].Sequence < segments[j].Sequence
		}
		return segments[i].ProductFilename < segments[j].ProductFilename
	})
	c.logger.Debug("archive search complete",
		logging.String("target", target),
		logging.String("mission", mission),
		logging.Int("observations", len(resp.Data)),
		logging.Int("segments", len(segments)),
	)
	if c.cache != nil {
		c.cache.SetDefault(key, append([]Segment(nil), segments...))
	}
	return segments, nil
}

func (c *Client) resolveName(ctx context.Context, name string) (float64, float64, error) {
	var resp nameLookupResponse
	params := map[string]any{"input": name, "format": "json"}
	if err := c.invoke(ctx, "Mast.Name.Lookup", params, &resp); err != nil {
		return 0, 0, services.Wrap(services.ErrTransient, "fetch", "resolve name", name, err)
	}
	if len(resp.ResolvedCoordinate) == 0 {
		return 0, 0, services.Wrap(services.ErrNotFound, "fetch", "resolve name", fmt.Sprintf("%q did not resolve", name), nil)
	}
	coord := resp.ResolvedCoordinate[0]
	return coord.RA, coord.Dec, nil
}

func (c *Client) products(ctx context.Context, obsID string) ([]product, error) {
	var resp productResponse
	if err := c.invoke(ctx, "Mast.Caom.Products", map[string]any{"obsid": obsID}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func exposureMatches(actual *float64, want float64) bool {
	if want <= 0 {
		return true
	}
	if actual == nil {
		return false
	}
	return math.Abs(*actual-want) <= math.Max(1, 0.05*want)
}

func isLightCurveProduct(p product) bool {
	name := strings.ToLower(p.ProductFilename)
	switch strings.ToUpper(strings.TrimSpace(p.SubGroup)) {
	case "LC", "LLC", "SLC", "FAST-LC":
		return strings.HasSuffix(name, ".fits")
	}
	if strings.HasSuffix(name, "_lc.fits") || strings.HasSuffix(name, "llc.fits") || strings.HasSuffix(name, "slc.fits") {
		return true
	}
	return strings.HasSuffix(name, "_lc.csv") || strings.HasSuffix(name, "_lightcurve.csv")
}

func newSegment(obs observation, p product, mission string) Segment {
	seg := Segment{
		Mission:         CanonicalMission(obs.Collection),
		ObsID:           string(obs.ObsID),
		ProductFilename: p.ProductFilename,
		DataURI:         p.DataURI,
		TargetID:        cleanTargetName(obs.TargetName),
		Author:          obs.Provenance,
	}
	if seg.Mission == "" && !AllMissions(mission) {
		seg.Mission = mission
	}
	if obs.SequenceNumber != nil {
		seg.Sequence = int(*obs.SequenceNumber)
	}
	if obs.ExposureTime != nil {
		seg.ExposureTime = *obs.ExposureTime
	}
	return seg
}

// cleanTargetName strips archive prefixes and zero padding ("kplr000123" → "123").
func cleanTargetName(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	for _, prefix := range []string{"kplr", "ktwo"} {
		if strings.HasPrefix(lower, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	if trimmed := strings.TrimLeft(name, "0"); trimmed != "" {
		return trimmed
	}
	return name
}
