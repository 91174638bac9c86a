package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/busylamp/busylamp/pkg/driver"
	"github.com/busylamp/busylamp/pkg/light"
	"github.com/busylamp/busylamp/pkg/usb"
)

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	list := flag.Bool("list", false, "List discovered lights and exit")
	supported := flag.Bool("supported", false, "List supported devices and exit")
	off := flag.Bool("off", false, "Turn the selected lights off and exit")
	blink := flag.Int("blink", 0, "Blink the selected lights this many times")
	effect := flag.String("effect", "", "Run an effect: gradient or spectrum")
	colorHex := flag.String("color", "00ff00", "Color as RRGGBB hex")
	speedName := flag.String("speed", "medium", "Blink speed: slow, medium, or fast")
	name := flag.String("name", "", "Select lights by display name (default: all)")
	catalogPath := flag.String("catalog", "", "Path to an extra device catalog (YAML)")
	hold := flag.Duration("hold", 10*time.Second, "How long to hold the lights before turning off")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if !*verbose {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	hid, err := usb.NewHID()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize HID transport")
	}
	defer func() {
		if err := hid.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release HID transport")
		}
	}()

	reg := light.NewRegistry(log.Logger, hid, usb.NewSerial())
	driver.MustRegister(reg)

	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open catalog")
		}
		if err := reg.LoadCatalog(f); err != nil {
			log.Fatal().Err(err).Msg("Failed to load catalog")
		}
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close catalog")
		}
	}

	if *supported {
		printSupported(reg)
		return
	}

	controller := light.NewController(reg, log.Logger)
	defer controller.Close()

	if *list {
		for i, n := range controller.Names() {
			fmt.Printf("%d: %s\n", i, n)
		}
		return
	}

	sel := controller.All()
	if *name != "" {
		sel = controller.ByName(*name, -1)
	}
	if sel.Len() == 0 {
		log.Fatal().Msg("No lights selected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Turn everything off on SIGINT/SIGTERM before teardown.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	color, err := parseColor(*colorHex)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid color")
	}

	switch {
	case *off:
		if err := sel.TurnOff(ctx); err != nil {
			log.Error().Err(err).Msg("Some lights failed to turn off")
		}
		return
	case *blink > 0:
		e := light.NewBlink(color, *blink, parseSpeed(*speedName))
		if err := sel.Run(ctx, e, 0, 0); err != nil {
			log.Error().Err(err).Msg("Blink did not complete")
		}
		return
	case *effect != "":
		e, err := effectByName(*effect, color)
		if err != nil {
			log.Fatal().Err(err).Msg("Unknown effect")
		}
		if err := sel.Run(ctx, e, 0, 0); err != nil {
			log.Error().Err(err).Msg("Effect did not complete")
		}
		return
	}

	if err := sel.TurnOn(ctx, color); err != nil {
		log.Error().Err(err).Msg("Some lights failed to turn on")
	}
	select {
	case <-ctx.Done():
	case <-time.After(*hold):
	}
}

func printSupported(reg *light.Registry) {
	byVendor := reg.Supported()
	vendors := make([]string, 0, len(byVendor))
	for v := range byVendor {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	for _, v := range vendors {
		fmt.Printf("%s:\n", v)
		for _, n := range byVendor[v] {
			fmt.Printf("  %s\n", n)
		}
	}
}

func parseColor(s string) (light.Color, error) {
	if len(s) != 6 {
		return light.Color{}, fmt.Errorf("color %q is not RRGGBB hex", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return light.Color{}, fmt.Errorf("color %q is not RRGGBB hex: %w", s, err)
	}
	return light.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func parseSpeed(s string) light.Speed {
	switch s {
	case "slow":
		return light.Slow
	case "fast":
		return light.Fast
	default:
		return light.Medium
	}
}

func effectByName(name string, c light.Color) (light.Effect, error) {
	switch name {
	case "gradient":
		return light.Gradient(c, 32, 3), nil
	case "spectrum":
		return light.Spectrum(64, 3, 1.0), nil
	default:
		return light.Effect{}, fmt.Errorf("effect %q (want gradient or spectrum)", name)
	}
}
