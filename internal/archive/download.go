package archive

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"exohunt/internal/fits"
	"exohunt/internal/lightcurve"
	"exohunt/internal/services"
)

// Download fetches one product and decodes it. FITS products are read from
// their LIGHTCURVE extension; CSV products are parsed directly. Samples with
// non-finite time or flagged by the quality bitmask are dropped.
func (c *Client) Download(ctx context.Context, seg Segment) (*lightcurve.LightCurve, error) {
	if strings.TrimSpace(seg.DataURI) == "" {
		return nil, services.Wrap(services.ErrValidation, "fetch", "download", "segment has no data uri", nil)
	}
	endpoint := c.opts.BaseURL + downloadPath + "?uri=" + url.QueryEscape(seg.DataURI)
	body, err := c.doWithRetry(ctx, c.opts.DownloadTimeout, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "fetch", "download", seg.UniqueID(), err)
	}

	var lc *lightcurve.LightCurve
	if strings.HasSuffix(strings.ToLower(seg.ProductFilename), ".csv") {
		lc, err = lightcurve.DecodeCSV(bytes.NewReader(body))
	} else {
		lc, err = c.decodeFITS(body, seg.Mission)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "fetch", "decode product", seg.UniqueID(), err)
	}
	return lc, nil
}

// DecodeFITS extracts time and flux from a light-curve FITS product.
// PDCSAP_FLUX is preferred, falling back to SAP_FLUX and then FLUX.
func DecodeFITS(data []byte, mask uint32) (*lightcurve.LightCurve, error) {
	table, err := fits.ReadTableBytes(data, "LIGHTCURVE")
	if err != nil {
		return nil, err
	}
	times, err := table.Float64s("TIME")
	if err != nil {
		return nil, err
	}
	var flux []float64
	for _, name := range []string{"PDCSAP_FLUX", "SAP_FLUX", "FLUX"} {
		if table.HasColumn(name) {
			if flux, err = table.Float64s(name); err != nil {
				return nil, err
			}
			break
		}
	}
	if flux == nil {
		return nil, fmt.Errorf("light curve table has no flux column")
	}
	var quality []int64
	for _, name := range []string{"QUALITY", "SAP_QUALITY"} {
		if table.HasColumn(name) {
			if quality, err = table.Int64s(name); err != nil {
				return nil, err
			}
			break
		}
	}

	lc := &lightcurve.LightCurve{
		Time: make([]float64, 0, len(times)),
		Flux: make([]float64, 0, len(times)),
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}
		if quality != nil && uint32(quality[i])&mask != 0 {
			continue
		}
		lc.Time = append(lc.Time, t)
		lc.Flux = append(lc.Flux, flux[i])
	}
	return lc, nil
}

func (c *Client) decodeFITS(data []byte, mission string) (*lightcurve.LightCurve, error) {
	mask, err := QualityBitmask(mission, c.opts.QualityBitmask)
	if err != nil {
		return nil, err
	}
	return DecodeFITS(data, mask)
}
