// Package discovery announces the lightslider websocket endpoint over mDNS so
// dashboards on the LAN can find it without configuration.
package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog/log"
)

// Service parameters.
const (
	ServiceType = "_lightslider._tcp"
	Domain      = "local."
	DefaultName = "lightslider"
	maxNameLen  = 63
)

// Config controls the advertisement.
type Config struct {
	Name      string        // instance name
	Interface string        // empty = all interfaces
	TTL       time.Duration // 0 = library default
	Version   string
}

// Advertiser registers one mDNS service for the HTTP listener.
type Advertiser struct {
	config Config

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config Config) *Advertiser {
	if config.Name == "" {
		config.Name = DefaultName
	}
	if len(config.Name) > maxNameLen {
		config.Name = config.Name[:maxNameLen]
	}
	return &Advertiser{config: config}
}

// TXT returns the TXT records announced for the given cards.
func (a *Advertiser) TXT(cards []string) []string {
	txt := []string{"path=/ws", fmt.Sprintf("cards=%d", len(cards))}
	if a.config.Version != "" {
		txt = append(txt, "version="+a.config.Version)
	}
	return txt
}

func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		log.Warn().Err(err).Str("interface", a.config.Interface).Msg("mDNS interface not found, using all")
		return nil
	}
	return []net.Interface{*iface}
}

// Register starts advertising port. A previous registration is replaced.
func (a *Advertiser) Register(port int, cards []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		a.config.Name,
		ServiceType,
		Domain,
		port,
		a.TXT(cards),
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server

	log.Info().
		Str("name", a.config.Name).
		Str("service", ServiceType).
		Int("port", port).
		Msg("Advertising over mDNS")
	return nil
}

// Shutdown stops advertising.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}
