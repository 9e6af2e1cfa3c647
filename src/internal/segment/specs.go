// FILE: src/internal/segment/specs.go
package segment

import (
	"fmt"

	"segbridge/src/internal/core"
	"segbridge/src/internal/transform"
)

// PageViewEvent selects the page call for the main event.
const PageViewEvent = "pageView"

// MessageIDStrategy selects how messageId is derived.
type MessageIDStrategy string

const (
	// MessageIDRequestID echoes endpoint.RequestId.
	MessageIDRequestID MessageIDStrategy = "request_id"
	// MessageIDHash is an MD5 digest of the built call.
	MessageIDHash MessageIDStrategy = "hash"
	// MessageIDUUID is a name-based UUID of the built call.
	MessageIDUUID MessageIDStrategy = "uuid"
	// MessageIDSourceHash is an MD5 digest of the whole source event, so
	// every call built from one event shares it.
	MessageIDSourceHash MessageIDStrategy = "source_hash"
)

// ParseMessageIDStrategy validates a strategy name. Empty selects request_id.
func ParseMessageIDStrategy(s string) (MessageIDStrategy, error) {
	switch MessageIDStrategy(s) {
	case "":
		return MessageIDRequestID, nil
	case MessageIDRequestID, MessageIDHash, MessageIDUUID, MessageIDSourceHash:
		return MessageIDStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown message id strategy: %s", s)
	}
}

// BaseSpec is the mapping shared by every call kind.
func BaseSpec(kind core.CallKind, strategy MessageIDStrategy) transform.Spec {
	messageID := transform.Omit("messageId")
	switch strategy {
	case MessageIDRequestID, "":
		messageID = transform.Path("messageId", "endpoint.RequestId")
	case MessageIDSourceHash:
		messageID = transform.Path("messageId", "|hash_event")
	}

	return transform.Spec{
		transform.Path("type", string(kind)+"|static"),
		transform.Path("anonymousId", "endpoint.Id"),
		messageID,
		transform.Path("timestamp", "event_timestamp|ms_to_iso8601"),
		transform.Path("receivedAt", "arrival_timestamp|ms_to_iso8601"),
		transform.Path("userId", "endpoint.User.UserId"),
		transform.Nested("context", contextSpec()),
	}
}

func contextSpec() transform.Spec {
	return transform.Spec{
		transform.Path("active", "endpoint.EndpointStatus"),
		transform.Nested("app", transform.Spec{
			transform.Omit("name"),
			transform.Omit("build"),
			transform.Path("version", "endpoint.Demographic.AppVersion"),
		}),
		transform.Nested("campaign", transform.Spec{
			transform.Path("name", "attributes.qv_utm_campaign"),
			transform.Path("source", "attributes.qv_utm_source"),
			transform.Path("medium", "attributes.qv_utm_medium"),
			transform.Path("term", "attributes.qv_utm_term"),
			transform.Path("content", "attributes.qv_utm_content"),
		}),
		transform.Nested("device", transform.Spec{
			transform.Omit("id"),
			transform.Omit("advertisingId"),
			transform.Path("manufacturer", "endpoint.Attributes.DeviceMake.0"),
			transform.Path("model", "endpoint.Attributes.DeviceModel.0"),
			transform.Omit("name"),
			transform.Path("type", "endpoint.Attributes.DeviceType.0"),
			transform.Omit("version"),
		}),
		transform.Omit("ip"),
		transform.Omit("library"),
		transform.Path("locale", "endpoint.Demographic.Locale"),
		transform.Nested("location", transform.Spec{
			transform.Path("country", "endpoint.Location.Country"),
			transform.Path("city", "endpoint.Location.City"),
			transform.Path("latitude", "endpoint.Location.Latitude"),
			transform.Path("longitude", "endpoint.Location.Longitude"),
		}),
		transform.Nested("os", transform.Spec{
			transform.Path("name", "endpoint.Demographic.Platform"),
			transform.Path("version", "endpoint.Demographic.PlatformVersion"),
		}),
		transform.Nested("page", transform.Spec{
			transform.Omit("path"),
			transform.Path("referrer", "attributes.referrer"),
			transform.Path("search", "attributes.search"),
			transform.Path("title", "attributes.title"),
			transform.Path("url", "attributes.url"),
			transform.Omit("keywords"),
		}),
		transform.Omit("referrer"),
		transform.Omit("screen"),
		transform.Path("timezone", "endpoint.Demographic.Timezone"),
		// Groups are sent as separate group calls
		transform.Omit("groupId"),
		// Later merges win on key collisions
		transform.Nested("traits", transform.Spec{
			transform.Merge("endpoint.Attributes"),
			transform.Merge("endpoint.User.UserAttributes"),
			transform.Merge("endpoint.Metrics"),
		}),
		transform.Omit("userAgent"),
	}
}

// CallSpec returns the full mapping for one call kind.
func CallSpec(kind core.CallKind, strategy MessageIDStrategy) (transform.Spec, error) {
	base := BaseSpec(kind, strategy)
	traits, _ := base.Lookup("context", "traits")
	page, _ := base.Lookup("context", "page")

	switch kind {
	case core.KindIdentify:
		return base.Overlay(transform.Spec{
			transform.Nested("traits", traits.Spec),
			transform.Omit("context"),
		}), nil

	case core.KindPage:
		title, _ := page.Spec.Get("title")
		ctx, _ := base.Get("context")
		return base.Overlay(transform.Spec{
			// page fields are lifted out of the context
			transform.Nested("context", ctx.Spec.Without("page")),
			transform.Path("name", title.Expr),
			transform.Nested("properties", page.Spec),
		}), nil

	case core.KindTrack:
		return base.Overlay(transform.Spec{
			transform.Path("event", "event_type"),
			transform.Nested("properties", transform.Spec{
				transform.Merge("attributes"),
				transform.Merge("metrics"),
			}),
		}), nil

	case core.KindGroup:
		return base.Overlay(transform.Spec{
			transform.Omit("context"),
			transform.Omit("messageId"),
		}), nil

	default:
		return nil, fmt.Errorf("unknown call kind: %s", kind)
	}
}

// DefaultSpecs returns the mapping of every call kind.
func DefaultSpecs(strategy MessageIDStrategy) map[core.CallKind]transform.Spec {
	specs := make(map[core.CallKind]transform.Spec, len(core.Kinds))
	for _, kind := range core.Kinds {
		spec, _ := CallSpec(kind, strategy)
		specs[kind] = spec
	}
	return specs
}
