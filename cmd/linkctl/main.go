// linkctl bridges packet traffic between the configured physical links.
// With both the serial port and the console channel enabled it forwards
// packets across them; with a single link it echoes traffic back to the
// sender.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"packetlink/internal/config"
	"packetlink/internal/console"
	"packetlink/internal/logging"
	"packetlink/internal/observability"
	"packetlink/internal/packet"
	"packetlink/internal/serial"
	"packetlink/internal/transport"
)

type link struct {
	name  string
	tr    *transport.Transport
	close func() error
}

func main() {
	configPath := flag.String("config", "linkctl.toml", "path to the bridge configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Error().Err(err).Msg("configuration unusable")
		os.Exit(1)
	}
	log := logging.InitLogger(cfg.Bridge.Name, cfg.Log.Level)

	tcfg := cfg.Transport.Runtime()
	var links []link

	if cfg.Serial.Enabled {
		port, err := serial.Open(cfg.Serial.PortID(), cfg.Serial.Line(), serial.NewHostDriver(), tcfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("serial port unavailable")
		}
		links = append(links, link{name: port.Tag(), tr: port.Transport, close: port.Close})
	}
	if cfg.Console.Enabled {
		ch := console.Open(os.Stdin, os.Stdout, tcfg, log)
		links = append(links, link{name: ch.Tag(), tr: ch.Transport, close: ch.Close})
	}
	if len(links) == 0 {
		log.Fatal().Msg("no links enabled in configuration")
	}

	bindForwarding(log, links)

	for _, l := range links {
		if err := l.tr.Start(); err != nil {
			log.Fatal().Err(err).Str("link", l.name).Msg("link start failed")
		}
		log.Info().Str("link", l.name).Msg("link running")
	}

	if cfg.Bridge.MetricsAddr != "" {
		go serveMetrics(log, cfg.Bridge.MetricsAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	for _, l := range links {
		if err := l.close(); err != nil {
			log.Error().Err(err).Str("link", l.name).Msg("link close failed")
		}
	}
}

// bindForwarding wires each link's inbound traffic to the next link's send
// queue. With one link the next link is itself, which yields an echo.
func bindForwarding(log zerolog.Logger, links []link) {
	for i := range links {
		src := links[i]
		dst := links[(i+1)%len(links)]
		src.tr.Bind(func(pkt packet.Packet, _ func(packet.Packet) error) {
			if err := dst.tr.Send(pkt); err != nil {
				log.Warn().Err(err).Str("from", src.name).Str("to", dst.name).Msg("forward failed")
			}
		}, func(pkt packet.Packet, err error) {
			log.Warn().Err(err).Str("link", src.name).Str("packet", pkt.HeaderInfo()).Msg("send failed")
		})
	}
}

func serveMetrics(log zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	log.Info().Str("addr", addr).Msg("metrics endpoint up")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
