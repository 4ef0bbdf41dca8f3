package segment

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

// Resolver looks up the segment of a request. *simpleab.Client implements it.
type Resolver interface {
	GetSegment(ctx context.Context, req simpleab.SegmentRequest) (simpleab.Segment, error)
}

// FromRequest builds the lookup request for r.
func FromRequest(r *http.Request) simpleab.SegmentRequest {
	return simpleab.SegmentRequest{
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// Lookup resolves req through res and normalizes the result.
// Errors from res are returned unchanged.
func Lookup(ctx context.Context, res Resolver, req simpleab.SegmentRequest) (simpleab.Segment, error) {
	seg, err := res.GetSegment(ctx, req)
	if err != nil {
		return simpleab.Segment{}, err
	}
	if strings.TrimSpace(seg.DeviceType) == "" {
		seg.DeviceType = DeviceType(req.UserAgent)
	}
	return Normalize(seg), nil
}

// Normalize trims every field, upper-cases the country code and lower-cases
// the device type so dimensions built from it match the configured ones.
func Normalize(seg simpleab.Segment) simpleab.Segment {
	return simpleab.NewSegment(
		cases.Upper(language.Und).String(strings.TrimSpace(seg.CountryCode)),
		strings.TrimSpace(seg.Region),
		cases.Lower(language.Und).String(strings.TrimSpace(seg.DeviceType)),
	)
}
