package geo

import "strings"

// CellPrecision is the geohash precision used for the coarse location cell
// attached to business profiles. Six characters is roughly a 1.2 km x 0.6 km
// cell, enough for neighborhood-level display without exposing the exact
// storefront coordinates.
const CellPrecision = 6

// base32 is the geohash base32 alphabet (excludes a, i, l, o).
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// EncodeCell encodes a point into a geohash cell of the given precision.
// A precision below 1 falls back to CellPrecision.
func EncodeCell(p Point, precision int) string {
	if precision < 1 {
		precision = CellPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var cell strings.Builder
	cell.Grow(precision)

	bits := 0
	var ch uint

	even := true
	for cell.Len() < precision {
		if even {
			mid := (lngRange[0] + lngRange[1]) / 2
			if p.Lng > mid {
				ch |= 1 << (4 - bits)
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if p.Lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			cell.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return cell.String()
}
