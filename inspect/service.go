// Package inspect serves read-only views of a running dispatch runtime over
// Connect, gRPC and gRPC-Web: bootstrapped call sites, registered classes and
// their methods, and composed traits.
package inspect

import (
	"context"
	"encoding/hex"
	"fmt"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/dynlink/compiler/traits"
	"github.com/chazu/dynlink/indy"
)

// Procedure paths of the inspection service.
const (
	ServicePath      = "/dynlink.inspect.v1.InspectService/"
	ProcedureSites   = ServicePath + "Sites"
	ProcedureClasses = ServicePath + "Classes"
	ProcedureMethods = ServicePath + "Methods"
	ProcedureTraits  = ServicePath + "Traits"
)

// Service implements the inspection handlers.
type Service struct {
	rt     *indy.Runtime
	traits *traits.Table
	log    commonlog.Logger
}

// New creates a Service over rt. table may be nil when no traits are known.
func New(rt *indy.Runtime, table *traits.Table) *Service {
	if table == nil {
		table = traits.NewTable()
	}
	return &Service{rt: rt, traits: table, log: commonlog.GetLogger("dynlink.inspect")}
}

// Sites returns per-site counters and the aggregate table statistics.
func (s *Service) Sites(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	var sites []interface{}
	for _, st := range s.rt.Sites.SiteStats() {
		sites = append(sites, map[string]interface{}{
			"id":         st.ID,
			"kind":       st.Kind,
			"sender":     st.Sender,
			"target":     st.Target,
			"state":      st.State,
			"generation": st.Generation,
			"hits":       st.Hits,
			"misses":     st.Misses,
			"relinks":    st.Relinks,
			"failures":   st.Failures,
			"hitRate":    st.HitRate(),
		})
	}
	agg := s.rt.Sites.Stats()
	return respond(map[string]interface{}{
		"sites": sites,
		"stats": map[string]interface{}{
			"totalSites":   agg.TotalSites,
			"unbound":      agg.Unbound,
			"bound":        agg.Bound,
			"invalidated":  agg.Invalidated,
			"megamorphic":  agg.Megamorphic,
			"totalHits":    agg.TotalHits,
			"totalMisses":  agg.TotalMisses,
			"totalRelinks": agg.TotalRelinks,
			"hitRate":      agg.HitRate,
			"boundRate":    agg.BoundRate,
		},
	})
}

// Classes lists every class with a meta-object.
func (s *Service) Classes(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	reg := s.rt.Registry
	var classes []interface{}
	for _, c := range reg.Classes() {
		meta := reg.MetaFor(c)
		entry := map[string]interface{}{
			"name":      c.Name,
			"kind":      meta.Kind().String(),
			"methods":   len(meta.Declared()),
			"interface": c.IsInterface(),
			"abstract":  c.IsAbstract(),
		}
		if c.Superclass != nil {
			entry["superclass"] = c.Superclass.Name
		}
		classes = append(classes, entry)
	}
	rs := reg.Stats()
	return respond(map[string]interface{}{
		"classes":       classes,
		"switchPoints":  rs.SwitchPoints,
		"invalidations": rs.Invalidations,
	})
}

// Methods describes the methods declared on one class. The request carries
// {"class": name}.
func (s *Service) Methods(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	name := req.Msg.GetFields()["class"].GetStringValue()
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("class is required"))
	}
	class := s.rt.Registry.Lookup(name)
	if class == nil {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("class %q not found", name))
	}

	var methods []interface{}
	for _, m := range s.rt.Registry.MetaFor(class).Declared() {
		params := make([]interface{}, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.Type.String()
		}
		entry := map[string]interface{}{
			"name":      m.Name,
			"signature": m.Signature(),
			"params":    params,
			"static":    m.IsStatic(),
			"abstract":  m.IsAbstract(),
			"vararg":    m.Vararg,
			"strategy":  m.Strategy.String(),
		}
		if m.Return != nil {
			entry["return"] = m.Return.String()
		}
		methods = append(methods, entry)
	}
	return respond(map[string]interface{}{
		"class":   class.Name,
		"methods": methods,
	})
}

// Traits lists composed traits with their generated helper names and
// metadata fingerprints.
func (s *Service) Traits(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	var out []interface{}
	for _, name := range s.traits.Names() {
		t := s.traits.Lookup(name)
		fp, err := traits.Fingerprint(t)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		methods := make([]interface{}, len(t.Methods))
		for i, m := range t.Methods {
			methods[i] = m.Signature()
		}
		fields := make([]interface{}, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = f.Name
		}
		out = append(out, map[string]interface{}{
			"name":        t.Name,
			"helper":      t.Helper,
			"fieldHelper": t.FieldHelper,
			"methods":     methods,
			"fields":      fields,
			"fingerprint": hex.EncodeToString(fp[:]),
		})
	}
	return respond(map[string]interface{}{"traits": out})
}

func respond(m map[string]interface{}) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(m)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

