// Package archive talks to the MAST portal API.
//
// Search resolves a target (catalog identifier or free-form name) to the
// light-curve products available for one mission, filtered by pipeline author
// and exposure time. Download fetches one product and decodes it into a
// lightcurve.LightCurve, applying the mission's quality bitmask. Search
// results are cached in-process for the configured TTL and every request runs
// under its own timeout.
package archive
