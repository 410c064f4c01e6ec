package inspect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/dynlink/compiler/traits"
	"github.com/chazu/dynlink/indy"
	"github.com/chazu/dynlink/mop"
)

func bg() context.Context { return context.Background() }

func newTestServer(t *testing.T) (*httptest.Server, *indy.Runtime, *mop.Class) {
	t.Helper()
	reg := mop.New()
	mop.InstallDefaults(reg)
	rt := indy.NewRuntime(reg, indy.DefaultSiteOptions())

	account := mop.NewClass("Account", nil)
	reg.Define(account,
		mop.NewMethod(account, "deposit", func(*mop.Thread, mop.Value, []mop.Value) (mop.Value, error) {
			return "ok", nil
		}, mop.IntType),
	)

	table := traits.NewTable()
	table.Register(&traits.TraitNode{
		Name:   "Greeter",
		Helper: traits.HelperName("Greeter"),
		Methods: []traits.MethodInfo{
			{Name: "greet", Return: "String"},
		},
	})

	srv := httptest.NewServer(NewServer(rt, table))
	t.Cleanup(srv.Close)
	return srv, rt, account
}

func call[Req, Res any](t *testing.T, srv *httptest.Server, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, srv.URL+procedure)
	resp, err := client.CallUnary(bg(), connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestSites(t *testing.T) {
	srv, rt, account := newTestServer(t)
	site, err := indy.Bootstrap(rt.Lookup(nil), indy.SiteInvoke, indy.SiteType{ArgCount: 1})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	th := rt.Registry.NewThread()
	obj := mop.NewObject(account)
	for i := 0; i < 3; i++ {
		if _, err := site.Call(th, "deposit", obj, 5); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}

	msg, err := call[emptypb.Empty, structpb.Struct](t, srv, ProcedureSites, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Sites returned error: %v", err)
	}
	sites := msg.Fields["sites"].GetListValue().GetValues()
	if len(sites) != 1 {
		t.Fatalf("sites = %d, want 1", len(sites))
	}
	s := sites[0].GetStructValue().GetFields()
	if got := s["hits"].GetNumberValue(); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := s["misses"].GetNumberValue(); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := s["state"].GetStringValue(); got != "bound" {
		t.Errorf("state = %q, want bound", got)
	}
	stats := msg.Fields["stats"].GetStructValue().GetFields()
	if got := stats["totalSites"].GetNumberValue(); got != 1 {
		t.Errorf("totalSites = %v, want 1", got)
	}
}

func TestClasses(t *testing.T) {
	srv, _, _ := newTestServer(t)
	msg, err := call[emptypb.Empty, structpb.Struct](t, srv, ProcedureClasses, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Classes returned error: %v", err)
	}
	var found *structpb.Struct
	for _, v := range msg.Fields["classes"].GetListValue().GetValues() {
		if v.GetStructValue().GetFields()["name"].GetStringValue() == "Account" {
			found = v.GetStructValue()
		}
	}
	if found == nil {
		t.Fatal("Account not listed")
	}
	if got := found.Fields["methods"].GetNumberValue(); got != 1 {
		t.Errorf("methods = %v, want 1", got)
	}
	if found.Fields["kind"].GetStringValue() == "" {
		t.Error("kind should be set")
	}
}

func TestMethods(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, _ := structpb.NewStruct(map[string]interface{}{"class": "Account"})
	msg, err := call[structpb.Struct, structpb.Struct](t, srv, ProcedureMethods, req)
	if err != nil {
		t.Fatalf("Methods returned error: %v", err)
	}
	methods := msg.Fields["methods"].GetListValue().GetValues()
	if len(methods) != 1 {
		t.Fatalf("methods = %d, want 1", len(methods))
	}
	m := methods[0].GetStructValue().GetFields()
	if got := m["signature"].GetStringValue(); got != "deposit(int)" {
		t.Errorf("signature = %q, want deposit(int)", got)
	}
	if m["static"].GetBoolValue() {
		t.Error("deposit should not be static")
	}
}

func TestMethodsErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, err := call[structpb.Struct, structpb.Struct](t, srv, ProcedureMethods, &structpb.Struct{})
	var cerr *connect.Error
	if !errors.As(err, &cerr) || cerr.Code() != connect.CodeInvalidArgument {
		t.Errorf("err = %v, want invalid_argument", err)
	}

	req, _ := structpb.NewStruct(map[string]interface{}{"class": "Nope"})
	_, err = call[structpb.Struct, structpb.Struct](t, srv, ProcedureMethods, req)
	if !errors.As(err, &cerr) || cerr.Code() != connect.CodeNotFound {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestTraits(t *testing.T) {
	srv, _, _ := newTestServer(t)
	msg, err := call[emptypb.Empty, structpb.Struct](t, srv, ProcedureTraits, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Traits returned error: %v", err)
	}
	list := msg.Fields["traits"].GetListValue().GetValues()
	if len(list) != 1 {
		t.Fatalf("traits = %d, want 1", len(list))
	}
	tr := list[0].GetStructValue().GetFields()
	if got := tr["helper"].GetStringValue(); got != "Greeter$Trait$Helper" {
		t.Errorf("helper = %q, want Greeter$Trait$Helper", got)
	}
	if got := len(tr["fingerprint"].GetStringValue()); got != 64 {
		t.Errorf("fingerprint length = %d, want 64", got)
	}
}

func TestServiceDirect(t *testing.T) {
	reg := mop.New()
	svc := New(indy.NewRuntime(reg, indy.DefaultSiteOptions()), nil)
	resp, err := svc.Traits(bg(), connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		t.Fatalf("Traits returned error: %v", err)
	}
	if n := len(resp.Msg.Fields["traits"].GetListValue().GetValues()); n != 0 {
		t.Errorf("traits = %d, want 0", n)
	}
}
