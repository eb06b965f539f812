package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/sifan077/MailPulse/internal/app/model"
	"go.uber.org/zap"
)

const (
	defaultGeoEndpoint = "https://ipapi.co"
	defaultGeoTimeout  = 10 * time.Second
	maxGeoBodyBytes    = 64 << 10
)

var errGeoNoCoordinates = errors.New("geolocation: response has no coordinates")

// GeoResolver maps a client IP to an approximate location. It never fails:
// anything it cannot resolve comes back as the zero GeoLocation.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) model.GeoLocation
}

// GeoCache stores successful lookups.
type GeoCache interface {
	Get(ctx context.Context, ip string) (model.GeoLocation, bool, error)
	Set(ctx context.Context, ip string, loc model.GeoLocation) error
}

// GeoResolverDeps configures the ipapi.co-compatible resolver.
type GeoResolverDeps struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Cache    GeoCache
	Logger   *zap.Logger
}

type geoResolver struct {
	enabled  bool
	endpoint string
	timeout  time.Duration
	client   *http.Client
	cache    GeoCache
	logger   *zap.Logger
}

// NewGeoResolver returns a resolver backed by an ipapi.co style HTTP API.
func NewGeoResolver(deps GeoResolverDeps) GeoResolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	endpoint := strings.TrimRight(deps.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultGeoEndpoint
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultGeoTimeout
	}
	client := deps.Client
	if client == nil {
		client = &http.Client{}
	}
	return &geoResolver{
		enabled:  deps.Enabled,
		endpoint: endpoint,
		timeout:  timeout,
		client:   client,
		cache:    deps.Cache,
		logger:   logger,
	}
}

// PublicAddr parses ip and reports whether it is a routable unicast address
// worth sending to the provider. Loopback, private, link-local, multicast and
// unspecified addresses are rejected.
func PublicAddr(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap().WithZone("")
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return netip.Addr{}, false
	}
	return addr, true
}

func (r *geoResolver) Resolve(ctx context.Context, ip string) model.GeoLocation {
	addr, ok := PublicAddr(ip)
	if !ok || !r.enabled {
		geoLookups.WithLabelValues("skipped").Inc()
		return model.GeoLocation{}
	}
	key := addr.String()

	if r.cache != nil {
		loc, hit, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("geolocation cache read failed", zap.String("ip", key), zap.Error(err))
		} else if hit {
			geoLookups.WithLabelValues("cached").Inc()
			return loc
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	loc, err := r.lookup(lookupCtx, key)
	if err != nil {
		geoLookups.WithLabelValues("failed").Inc()
		r.logger.Debug("geolocation lookup failed", zap.String("ip", key), zap.Error(err))
		return model.GeoLocation{}
	}
	geoLookups.WithLabelValues("resolved").Inc()

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, loc); err != nil {
			r.logger.Warn("geolocation cache write failed", zap.String("ip", key), zap.Error(err))
		}
	}
	return loc
}

type ipapiResponse struct {
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
}

func (r *geoResolver) lookup(ctx context.Context, ip string) (model.GeoLocation, error) {
	url := fmt.Sprintf("%s/%s/json/", r.endpoint, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.GeoLocation{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mailpulse/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.GeoLocation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.GeoLocation{}, fmt.Errorf("geolocation: unexpected status %d", resp.StatusCode)
	}

	var payload ipapiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGeoBodyBytes)).Decode(&payload); err != nil {
		return model.GeoLocation{}, fmt.Errorf("geolocation: decode response: %w", err)
	}
	if payload.Error {
		return model.GeoLocation{}, fmt.Errorf("geolocation: provider error: %s", payload.Reason)
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return model.GeoLocation{}, errGeoNoCoordinates
	}

	place := placeName(payload.City, payload.Region, payload.CountryName)
	return model.GeoLocation{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Location:  &place,
	}, nil
}

// placeName joins the non-empty parts with ", ", or returns "Unknown".
func placeName(parts ...string) string {
	present := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			present = append(present, p)
		}
	}
	if len(present) == 0 {
		return "Unknown"
	}
	return strings.Join(present, ", ")
}
