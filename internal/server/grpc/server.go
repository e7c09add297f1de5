// Package grpc serves the operator API: link issuance, terms publication,
// schedule overrides, contract completion and on-demand sweeps.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/contractsign/internal/logging"
)

type GRPCServer struct {
	address   string
	links     LinkIssuer
	terms     TermsPublisher
	sweeper   Sweeper
	contracts ContractAdmin
	logger    logging.Logger
	jwtSecret []byte
}

// Services bundles the operator-side services.
type Services struct {
	Links     LinkIssuer
	Terms     TermsPublisher
	Sweeper   Sweeper
	Contracts ContractAdmin
}

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey []byte) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		links:     svc.Links,
		terms:     svc.Terms,
		sweeper:   svc.Sweeper,
		contracts: svc.Contracts,
		jwtSecret: secretKey,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.operatorTokenInterceptor))

	srv.RegisterService(&OperatorServiceDesc, s)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		healthSrv.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
