// Package fixserver accepts FIX 4.4 NewOrderSingle messages and feeds them to the venue.
package fixserver

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joripage/venue-sim/pkg/logging"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
)

type Server struct {
	app            *Application
	acceptor       *quickfix.Acceptor
	configFilepath string
}

func NewServer(configFilepath string, v orderAdder, logger *logging.Logger) *Server {
	return &Server{
		app:            newApplication(v, logger),
		configFilepath: configFilepath,
	}
}

func (s *Server) Start() error {
	stringData, err := os.ReadFile(s.configFilepath)
	if err != nil {
		return fmt.Errorf("error reading cfg %v: %w", s.configFilepath, err)
	}

	appSettings, err := quickfix.ParseSettings(bytes.NewReader(stringData))
	if err != nil {
		return fmt.Errorf("error parsing cfg: %w", err)
	}

	logFactory, err := file.NewLogFactory(appSettings)
	if err != nil {
		return fmt.Errorf("unable to create log factory: %w", err)
	}

	acceptor, err := quickfix.NewAcceptor(s.app, quickfix.NewMemoryStoreFactory(), appSettings, logFactory)
	if err != nil {
		return fmt.Errorf("unable to create acceptor: %w", err)
	}

	if err := acceptor.Start(); err != nil {
		return fmt.Errorf("unable to start FIX acceptor: %w", err)
	}
	s.acceptor = acceptor
	return nil
}

func (s *Server) Stop() {
	if s.acceptor != nil {
		s.acceptor.Stop()
	}
}
