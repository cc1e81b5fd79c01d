/*
Package rpc implements the coordinator's worker-facing RPC surface over
google.golang.org/grpc.

There is no protobuf-generated code here: protoc cannot run as part of this
build, and hand-authoring the raw descriptor bytes protoc-gen-go produces is
not something that can be done safely by hand — a mismatched descriptor
fails at runtime, not compile time. Instead this package registers a plain
JSON encoding.Codec with grpc's codec registry and forces every connection
onto it with grpc.ForceServerCodec, then hand-writes the grpc.ServiceDesc
that protoc-gen-go-grpc would otherwise generate. The wire transport,
framing, interceptor chain, and deadline propagation are all real grpc-go;
only the message encoding and the service descriptor are hand-rolled.
*/
package rpc
