package greeter

import (
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	nameField    = "name"
	messageField = "message"
)

// NewHelloRequest builds a {"name": name} request.
func NewHelloRequest(name string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		nameField: structpb.NewStringValue(name),
	}}
}

// NewHelloReply builds a {"message": message} reply.
func NewHelloReply(message string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		messageField: structpb.NewStringValue(message),
	}}
}

// Name returns the name of a request, empty if absent.
func Name(req *structpb.Struct) string {
	return req.GetFields()[nameField].GetStringValue()
}

// Message returns the message of a reply, empty if absent.
func Message(reply *structpb.Struct) string {
	return reply.GetFields()[messageField].GetStringValue()
}
