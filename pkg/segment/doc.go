// Package segment builds segment lookups from incoming HTTP requests.
//
// FromRequest extracts the client IP (honouring common proxy headers) and the
// User-Agent into a simpleab.SegmentRequest. Middleware does the same once per
// request and stores the result in the context, so handlers deeper in the chain
// can call FromContext.
//
// Lookup resolves the segment through the SDK and normalizes it: country codes
// are upper-cased, device types lower-cased, and a missing device type is
// filled in locally from the User-Agent with DeviceType.
//
//	mux.Handle("/", segment.Middleware(handler))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		seg, err := segment.Lookup(r.Context(), client, segment.FromContext(r.Context()))
//		if err != nil {
//			// fall back to the default dimension
//		}
//		treatment, err := client.GetTreatmentWithSegment(r.Context(), "exp1", simpleab.StageProduction, seg, userID)
//	}
package segment
