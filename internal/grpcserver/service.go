package grpcserver

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"epubhub/pkg/models"
)

const ServiceName = "epubhub.CatalogService"

const (
	listBooksMethod = "/" + ServiceName + "/ListBooks"
	getBookMethod   = "/" + ServiceName + "/GetBook"
)

// Codec carries messages as JSON. Both ends must force it.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (Codec) Name() string                       { return "json" }

// ListBooksRequest mirrors the HTTP listing parameters. Zero values take
// the catalog defaults.
type ListBooksRequest struct {
	Page   int32  `json:"page,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
	Sort   string `json:"sort,omitempty"`
	Order  string `json:"order,omitempty"`
	Search string `json:"search,omitempty"`
}

type GetBookRequest struct {
	Title string `json:"title"`
}

type GetBookResponse struct {
	Book models.Book `json:"book"`
}

type CatalogServer interface {
	ListBooks(context.Context, *ListBooksRequest) (*models.PaginatedBooks, error)
	GetBook(context.Context, *GetBookRequest) (*GetBookResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListBooks", Handler: listBooksHandler},
		{MethodName: "GetBook", Handler: getBookHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "epubhub/catalog",
}

func Register(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func listBooksHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListBooksRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListBooks(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listBooksMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ListBooks(ctx, req.(*ListBooksRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBookHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBookRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetBook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getBookMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetBook(ctx, req.(*GetBookRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls CatalogService over a connection dialed with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})).
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListBooks(ctx context.Context, in *ListBooksRequest, opts ...grpc.CallOption) (*models.PaginatedBooks, error) {
	out := new(models.PaginatedBooks)
	if err := c.cc.Invoke(ctx, listBooksMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBook(ctx context.Context, in *GetBookRequest, opts ...grpc.CallOption) (*GetBookResponse, error) {
	out := new(GetBookResponse)
	if err := c.cc.Invoke(ctx, getBookMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
