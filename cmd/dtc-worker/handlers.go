package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
	"github.com/WessleyAI/wessley-dtc/pkg/natsutil"
	"github.com/WessleyAI/wessley-dtc/pkg/vehiclenlp"
)

// ResolveRequest is the body of a dtc.resolve request.
type ResolveRequest struct {
	Code string `json:"code"`
	Make string `json:"make,omitempty"`
}

// ExtractRequest is the body of a dtc.extract request.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractReply lists the codes and vehicle found in the text.
type ExtractReply struct {
	Codes   []dtc.Extracted     `json:"codes"`
	Vehicle *vehiclenlp.Mention `json:"vehicle,omitempty"`
}

var errUnavailable = errors.New("could not check the code right now")

type codeResolver interface {
	Resolve(ctx context.Context, rawCode, make_ string) (resolve.Outcome, error)
}

// publishFunc announces a resolution on SubjectResolved.
type publishFunc func(context.Context, resolve.View) error

// resolveHandler answers dtc.resolve. Resolutions are announced through
// publish when it is non-nil; a failed announcement does not fail the reply.
func resolveHandler(r codeResolver, publish publishFunc, logger *slog.Logger) natsutil.Handler[ResolveRequest, resolve.View] {
	return func(ctx context.Context, req ResolveRequest) (resolve.View, error) {
		out, err := r.Resolve(ctx, req.Code, req.Make)
		if err != nil {
			logger.Error("resolve failed", "code", req.Code, "make", req.Make, "err", err)
			return resolve.View{}, errUnavailable
		}
		v := resolve.Describe(out)
		if publish != nil {
			if err := publish(ctx, v); err != nil {
				logger.Warn("publish resolution failed", "code", v.Code, "err", err)
			}
		}
		return v, nil
	}
}

func extractHandler(_ context.Context, req ExtractRequest) (ExtractReply, error) {
	reply := ExtractReply{Codes: fn.Map(dtc.ExtractCodes(req.Text), dtc.ClassifyExtracted)}
	if m, ok := vehiclenlp.Find(req.Text); ok {
		reply.Vehicle = &m
	}
	return reply, nil
}
