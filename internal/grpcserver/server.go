package grpcserver

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"epubhub/internal/auth"
	"epubhub/internal/catalog"
	"epubhub/pkg/models"
)

type Server struct {
	Catalog *catalog.Service
}

func NewServer(svc *catalog.Service) *Server {
	return &Server{Catalog: svc}
}

func (s *Server) ListBooks(ctx context.Context, req *ListBooksRequest) (*models.PaginatedBooks, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	q := s.Catalog.WithDefaults(catalog.Query{
		Page:   int(req.Page),
		Limit:  int(req.Limit),
		Sort:   catalog.SortField(strings.TrimSpace(req.Sort)),
		Order:  catalog.Order(strings.TrimSpace(req.Order)),
		Search: req.Search,
	})

	res, err := s.Catalog.List(ctx, q)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "list failed")
	}
	return &res, nil
}

func (s *Server) GetBook(ctx context.Context, req *GetBookRequest) (*GetBookResponse, error) {
	if req == nil || strings.TrimSpace(req.Title) == "" {
		return nil, status.Error(codes.InvalidArgument, "title required")
	}

	book, err := s.Catalog.GetByTitle(ctx, strings.TrimSpace(req.Title))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "not found")
		}
		return nil, status.Error(codes.Internal, "failed to fetch book details")
	}
	return &GetBookResponse{Book: book}, nil
}

type claimsKey struct{}

// ClaimsFromContext returns the caller verified by AuthInterceptor.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// AuthInterceptor requires "authorization: Bearer <token>" metadata.
func AuthInterceptor(v auth.Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		var raw string
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = auth.BearerToken(vals[0])
		}

		claims, err := v.Verify(ctx, raw)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				return nil, status.Error(codes.Unauthenticated, "unauthorized")
			}
			return nil, status.Error(codes.Internal, "token check failed")
		}
		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}

// LoggingInterceptor logs each call with its status code and duration.
func LoggingInterceptor(logger *log.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Printf("[grpc] %s %s %s", info.FullMethod, status.Code(err), time.Since(start).Round(time.Millisecond))
		return resp, err
	}
}

// New builds a grpc.Server with the JSON codec, logging and auth, and
// registers srv on it.
func New(srv CatalogServer, v auth.Verifier, logger *log.Logger) *grpc.Server {
	gs := grpc.NewServer(
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(LoggingInterceptor(logger), AuthInterceptor(v)),
	)
	Register(gs, srv)
	return gs
}
