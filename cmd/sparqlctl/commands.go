package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cayleygraph/quad"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/sparqlconn/internal/query"
	"github.com/vanshika/sparqlconn/internal/rdf"
	"github.com/vanshika/sparqlconn/internal/repository"
	"github.com/vanshika/sparqlconn/internal/resultio"
	"github.com/vanshika/sparqlconn/internal/service"
)

// queryFlags are shared by the commands that prepare a query.
type queryFlags struct {
	file          string
	baseURI       string
	bindings      []string
	rulesets      []string
	defaultGraphs []string
	namedGraphs   []string
	noInfer       bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "read the query from a file (- for stdin)")
	fl.StringVar(&f.baseURI, "base", "", "base URI for relative IRIs")
	fl.StringArrayVar(&f.bindings, "bind", nil, "bind a variable: name=<iri> or name=literal")
	fl.StringSliceVar(&f.rulesets, "ruleset", nil, "inference rulesets to apply")
	fl.StringSliceVar(&f.defaultGraphs, "default-graph", nil, "default graph IRIs of the dataset")
	fl.StringSliceVar(&f.namedGraphs, "named-graph", nil, "named graph IRIs of the dataset")
	fl.BoolVar(&f.noInfer, "no-infer", false, "exclude the store's default rulesets")
}

func (f *queryFlags) text(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case f.file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	case f.file != "":
		data, err := os.ReadFile(f.file)
		return string(data), err
	default:
		return "", fmt.Errorf("a query argument or --file is required")
	}
}

type rulesetter interface {
	SetRulesets(rulesets ...query.Ruleset)
}

func (f *queryFlags) apply(q repository.Query) error {
	for _, b := range f.bindings {
		name, value, ok := strings.Cut(b, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid binding %q, want name=value", b)
		}
		q.SetBinding(strings.TrimPrefix(name, "?"), parseTerm(value))
	}
	if f.noInfer {
		q.SetIncludeInferred(false)
	}
	if rs, ok := q.(rulesetter); ok && len(f.rulesets) > 0 {
		rulesets := make([]query.Ruleset, len(f.rulesets))
		for i, r := range f.rulesets {
			rulesets[i] = query.Ruleset(r)
		}
		rs.SetRulesets(rulesets...)
	}
	var ds query.Dataset
	for _, g := range f.defaultGraphs {
		ds.DefaultGraphs = append(ds.DefaultGraphs, quad.IRI(g))
	}
	for _, g := range f.namedGraphs {
		ds.NamedGraphs = append(ds.NamedGraphs, quad.IRI(g))
	}
	if !ds.IsEmpty() {
		q.SetDataset(ds)
	}
	return nil
}

func parseTerm(v string) quad.Value {
	if strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">") {
		return quad.IRI(v[1 : len(v)-1])
	}
	return quad.String(v)
}

func queryCmd(g *globalFlags) *cobra.Command {
	var (
		qf         queryFlags
		output     string
		pageLength int64
		page       int64
		start      int64
	)
	cmd := &cobra.Command{
		Use:   "query [SPARQL]",
		Short: "Run a SELECT, CONSTRUCT or DESCRIBE query",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := qf.text(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			q, err := s.conn.PrepareQuery(text, repository.WithBaseURI(qf.baseURI))
			if err != nil {
				return err
			}
			if err := qf.apply(q); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch q := q.(type) {
			case *repository.TupleQuery:
				h := tupleHandler(out, output)
				switch {
				case pageLength > 0 && start > 0:
					return q.EvaluateWindowTo(ctx, h, start, pageLength)
				case pageLength > 0:
					return q.EvaluatePageTo(ctx, h, pageLength, page)
				}
				return q.EvaluateTo(ctx, h)
			case *repository.GraphQuery:
				if pageLength > 0 {
					first := start
					if first == 0 {
						first = (page-1)*pageLength + 1
					}
					res, err := q.EvaluateWindow(ctx, first, pageLength)
					if err != nil {
						return err
					}
					return res.Drain(resultio.NewNQuadsWriter(out))
				}
				return q.EvaluateTo(ctx, resultio.NewNQuadsWriter(out))
			case *repository.BooleanQuery:
				return q.EvaluateTo(ctx, resultio.NewXMLWriter(out))
			default:
				return fmt.Errorf("use the update command for updates")
			}
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "xml", "tuple output: xml or table")
	cmd.Flags().Int64Var(&pageLength, "page-length", 0, "rows per page (0 = everything)")
	cmd.Flags().Int64Var(&page, "page", 1, "1-based page number")
	cmd.Flags().Int64Var(&start, "start", 0, "1-based first row; overrides --page")
	return cmd
}

// tupleHandler writes SPARQL XML or an aligned table.
func tupleHandler(out io.Writer, format string) query.TupleHandler {
	if format != "table" {
		return resultio.NewXMLWriter(out)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	var names []string
	return query.TupleHandlerFuncs{
		Start: func(bindingNames []string) error {
			names = bindingNames
			_, err := fmt.Fprintln(tw, strings.Join(bindingNames, "\t"))
			return err
		},
		Solution: func(bs query.BindingSet) error {
			cells := make([]string, len(names))
			for i, n := range names {
				if v := bs.Value(n); v != nil {
					cells[i] = v.String()
				}
			}
			_, err := fmt.Fprintln(tw, strings.Join(cells, "\t"))
			return err
		},
		End: tw.Flush,
	}
}

func askCmd(g *globalFlags) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "ask [SPARQL]",
		Short: "Run an ASK query and print true or false",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := qf.text(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			q, err := s.conn.PrepareBooleanQuery(text, repository.WithBaseURI(qf.baseURI))
			if err != nil {
				return err
			}
			if err := qf.apply(q); err != nil {
				return err
			}
			ok, err := q.Evaluate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	qf.register(cmd)
	return cmd
}

func updateCmd(g *globalFlags) *cobra.Command {
	var (
		qf     queryFlags
		inTx bool
	)
	cmd := &cobra.Command{
		Use:   "update [SPARQL]",
		Short: "Execute a SPARQL update",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := qf.text(cmd, args)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			u, err := s.conn.PrepareUpdate(text, repository.WithBaseURI(qf.baseURI))
			if err != nil {
				return err
			}
			if err := qf.apply(u); err != nil {
				return err
			}
			if !inTx {
				return u.Execute(ctx)
			}
			if err := s.conn.Begin(ctx); err != nil {
				return err
			}
			if err := u.Execute(ctx); err != nil {
				_ = s.conn.Rollback(ctx)
				return err
			}
			return s.conn.Commit(ctx)
		},
	}
	qf.register(cmd)
	cmd.Flags().BoolVar(&inTx, "tx", false, "run inside an explicit transaction")
	return cmd
}

func loadCmd(g *globalFlags) *cobra.Command {
	var (
		graphs  []string
		baseURI string
		format  string
		workers int
		noTx    bool
	)
	cmd := &cobra.Command{
		Use:   "load FILE|DIR|URL...",
		Short: "Load RDF documents; directories are searched for known extensions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var explicit rdf.Format
			if format != "" {
				f, err := rdf.FormatByName(format)
				if err != nil {
					return err
				}
				explicit = f
			}
			contexts := make([]quad.Value, len(graphs))
			for i, c := range graphs {
				contexts[i] = quad.IRI(c)
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			var tasks []service.LoadTask
			for _, arg := range args {
				if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
					if err := s.conn.AddURL(ctx, arg, baseURI, explicit, contexts...); err != nil {
						return err
					}
					continue
				}
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				files := []string{arg}
				if info.IsDir() {
					if files, err = service.ResolveFiles(arg, nil); err != nil {
						return err
					}
				}
				for _, t := range service.Tasks(files, baseURI, contexts...) {
					t.Format = explicit
					tasks = append(tasks, t)
				}
			}
			if len(tasks) == 0 {
				return nil
			}

			loader := service.NewBulkLoader(s.repo,
				service.WithWorkers(workers),
				service.WithTransactions(!noTx),
				service.WithLoaderLogger(s.logger),
			)
			report, err := loader.Load(ctx, tasks)
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d of %d files in %s\n", report.Files-report.Failed, report.Files, report.Duration)
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&graphs, "graph", "g", nil, "named graphs receiving the statements")
	fl.StringVar(&baseURI, "base", "", "base URI for relative IRIs")
	fl.StringVar(&format, "format", "", "RDF format name; detected from the file name when empty")
	fl.IntVarP(&workers, "workers", "j", 4, "concurrent file loads")
	fl.BoolVar(&noTx, "no-tx", false, "do not wrap each file in a transaction")
	return cmd
}

func clearCmd(g *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [GRAPH...]",
		Short: "Remove every statement of the given graphs, or of the default graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			if all {
				return s.conn.Remove(ctx, nil, nil, nil)
			}
			contexts := make([]quad.Value, len(args))
			for i, a := range args {
				contexts[i] = quad.IRI(a)
			}
			return s.conn.Clear(ctx, contexts...)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove statements from every graph")
	return cmd
}

func contextsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the named graphs holding statements",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			cur, err := s.conn.ContextIDs(ctx)
			if err != nil {
				return err
			}
			return query.ForEach(cur, func(v quad.Value) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), rdf.StringValue(v))
				return err
			})
		},
	}
}

func sizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "size [GRAPH...]",
		Short: "Count statements in the given graphs or the whole store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			contexts := make([]quad.Value, len(args))
			for i, a := range args {
				contexts[i] = quad.IRI(a)
			}
			n, err := s.conn.Size(ctx, contexts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func exportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [GRAPH...]",
		Short: "Write statements as N-Quads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			contexts := make([]quad.Value, len(args))
			for i, a := range args {
				contexts[i] = quad.IRI(a)
			}
			return s.conn.Export(ctx, resultio.NewNQuadsWriter(cmd.OutOrStdout()), contexts...)
		},
	}
}

func benchCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "bench PLAN.yaml",
		Short: "Time the queries of a YAML benchmark plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := service.LoadBenchPlan(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			s, err := connect(cmd, g)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			results, err := service.Bench(ctx, s.repo, plan)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			enc := yaml.NewEncoder(out)
			defer enc.Close()
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "result format: yaml or json")
	return cmd
}
