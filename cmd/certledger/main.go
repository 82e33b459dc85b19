package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"certledger.dev/certledger/issuer"
	"certledger.dev/certledger/keys"
	"certledger.dev/certledger/ledger"
	"certledger.dev/certledger/model"
	"certledger.dev/certledger/pin"
	"certledger.dev/certledger/project"
	"certledger.dev/certledger/render"
	"certledger.dev/certledger/roster"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "roster":
		return cmdRoster(args[1:], out, errOut)
	case "render":
		return cmdRender(args[1:], out, errOut)
	case "pin":
		return cmdPin(args[1:], out, errOut)
	case "issue":
		return cmdIssue(args[1:], out, errOut, false)
	case "bulk":
		return cmdIssue(args[1:], out, errOut, true)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "read":
		return cmdRead(args[1:], out, errOut)
	case "counter":
		return cmdCounter(args[1:], out, errOut)
	case "project":
		return cmdProject(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "session":
		return cmdSession(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "certledger: batch certificate issuance to a tamper-evident ledger")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  certledger roster <file.xlsx> [--save <project-id>]")
	fmt.Fprintln(w, "  certledger render --background <png> --student <name> --reg <no> --school <name> --course <name> [--template <json>] -o <out.png>")
	fmt.Fprintln(w, "  certledger pin put <file> [--name <display>] [--description <text>]")
	fmt.Fprintln(w, "  certledger pin get <hash> [-o <file>]")
	fmt.Fprintln(w, "  certledger pin ls [--limit <n>]")
	fmt.Fprintln(w, "  certledger pin rm <hash>")
	fmt.Fprintln(w, "  certledger pin auth")
	fmt.Fprintln(w, "  certledger issue --project <id> --background <png> --target <addr> --signer <name> [--signer-role <role>]")
	fmt.Fprintln(w, "  certledger bulk  --project <id> --background <png> --target <addr> --signer <name> [--signer-role <role>]")
	fmt.Fprintln(w, "  certledger verify --target <addr> <certificate-id>")
	fmt.Fprintln(w, "  certledger read --target <addr> <certificate-id>")
	fmt.Fprintln(w, "  certledger counter --target <addr>")
	fmt.Fprintln(w, "  certledger project create --name <name> [--description <text>]")
	fmt.Fprintln(w, "  certledger project list | show <id> | delete <id> | stats")
	fmt.Fprintln(w, "  certledger project export <id> [-o <file>] | import <file>")
	fmt.Fprintln(w, "  certledger key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  certledger key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  certledger key list | export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  certledger session set --address <addr> --network <net> | show | clear")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys live under ~/.certledger/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - projects and the session live under ~/.certledger (override with CERTLEDGER_DIR)")
	fmt.Fprintln(w, "  - pin commands read the service token from CERTLEDGER_PIN_JWT")
	fmt.Fprintln(w, "  - bulk is all-or-nothing: one ledger transaction for the whole roster")
}

func openStore(errOut io.Writer) (*project.Store, bool) {
	st, err := project.Open(os.Getenv("CERTLEDGER_DIR"))
	if err != nil {
		fmt.Fprintf(errOut, "open store: %v\n", err)
		return nil, false
	}
	return st, true
}

func pinClient(fs *flag.FlagSet) *pin.Client {
	api := fs.Lookup("api-url").Value.String()
	gateway := fs.Lookup("gateway").Value.String()
	jwt := fs.Lookup("jwt").Value.String()
	if jwt == "" {
		jwt = os.Getenv("CERTLEDGER_PIN_JWT")
	}
	return &pin.Client{APIURL: api, Gateway: gateway, JWT: jwt}
}

func pinFlags(fs *flag.FlagSet) {
	fs.String("api-url", "https://api.pinata.cloud", "Pinning service API base URL")
	fs.String("gateway", "https://gateway.pinata.cloud/ipfs/", "Gateway base URL for fetch-by-hash")
	fs.String("jwt", "", "Service token (defaults to CERTLEDGER_PIN_JWT)")
}

func cmdRoster(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("roster", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var saveTo string
	fs.StringVar(&saveTo, "save", "", "Project id to save the normalized roster into")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: certledger roster <file.xlsx> [--save <project-id>]")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open workbook: %v\n", err)
		return 1
	}
	defer f.Close()

	rows, err := roster.ReadWorkbook(f)
	if err != nil {
		fmt.Fprintf(errOut, "read workbook: %v\n", err)
		return 1
	}
	records, err := roster.Normalize(rows)
	if err != nil {
		fmt.Fprintf(errOut, "normalize: %v\n", err)
		return 1
	}

	if saveTo != "" {
		st, ok := openStore(errOut)
		if !ok {
			return 1
		}
		if _, err := st.SaveRoster(saveTo, records); err != nil {
			fmt.Fprintf(errOut, "save roster: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "saved %d recipients to project %s\n", len(records), saveTo)
		return 0
	}

	fmt.Fprintf(out, "%d recipients\n", len(records))
	for _, r := range roster.Preview(records, 10) {
		fmt.Fprintf(out, "  %3d  %-24s %-12s %-18s %s\n", r.ID, r.StudentName, r.RegistrationNumber, r.SchoolName, r.CourseName)
	}
	if len(records) > 10 {
		fmt.Fprintf(out, "  ... and %d more\n", len(records)-10)
	}
	return 0
}

func cmdRender(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var background, templatePath, outPath string
	var student, reg, school, course string
	var fontDir string
	fs.StringVar(&background, "background", "", "Background image (PNG or JPEG)")
	fs.StringVar(&templatePath, "template", "", "Template JSON (defaults to a plain 4-field layout)")
	fs.StringVar(&outPath, "o", "", "Output PNG path")
	fs.StringVar(&student, "student", "", "Student name")
	fs.StringVar(&reg, "reg", "", "Registration number")
	fs.StringVar(&school, "school", "", "School name")
	fs.StringVar(&course, "course", "", "Course name")
	fs.StringVar(&fontDir, "font-dir", "", "Directory of .ttf files for template font families")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if background == "" || outPath == "" || student == "" {
		fmt.Fprintln(errOut, "missing --background, --student, or -o")
		return 2
	}

	bg, err := os.ReadFile(background)
	if err != nil {
		fmt.Fprintf(errOut, "read background: %v\n", err)
		return 1
	}

	cfg := defaultTemplate()
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			fmt.Fprintf(errOut, "read template: %v\n", err)
			return 1
		}
		cfg, err = parseTemplate(data)
		if err != nil {
			fmt.Fprintf(errOut, "parse template: %v\n", err)
			return 1
		}
	}

	var faces render.FaceResolver
	if fontDir != "" {
		faces = &render.DirFaces{Dir: fontDir}
	}
	art, err := render.New(faces).Render(bg, cfg, model.RecipientRecord{
		StudentName:        student,
		RegistrationNumber: reg,
		SchoolName:         school,
		CourseName:         course,
	})
	if err != nil {
		fmt.Fprintf(errOut, "render: %v\n", err)
		return 1
	}
	if err := os.WriteFile(outPath, art, 0o644); err != nil {
		fmt.Fprintf(errOut, "write artifact: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "wrote %s (%d bytes)\n", outPath, len(art))
	return 0
}

func cmdPin(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: certledger pin <put|get|ls|rm|auth> ...")
		return 2
	}
	ctx := context.Background()

	switch args[0] {
	case "put":
		fs := flag.NewFlagSet("pin put", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var name, description string
		fs.StringVar(&name, "name", "", "Display name for the pin index")
		fs.StringVar(&description, "description", "", "Description keyvalue")
		pinFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: certledger pin put <file> [--name ...] [--description ...]")
			return 2
		}
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "read file: %v\n", err)
			return 1
		}
		if name == "" {
			name = fs.Arg(0)
		}
		ref, err := pinClient(fs).UploadFile(ctx, name, data, pin.Metadata{Name: name, Description: description})
		if err != nil {
			fmt.Fprintf(errOut, "upload: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "%s\n", ref.Hash)
		fmt.Fprintf(errOut, "URL: %s (%d bytes)\n", ref.URL, ref.SizeBytes)
		return 0

	case "get":
		fs := flag.NewFlagSet("pin get", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var outPath string
		fs.StringVar(&outPath, "o", "", "Write to file instead of stdout")
		pinFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: certledger pin get <hash> [-o <file>]")
			return 2
		}
		b, err := pinClient(fs).Fetch(ctx, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "fetch: %v\n", err)
			return 1
		}
		if outPath != "" {
			if err := os.WriteFile(outPath, b, 0o644); err != nil {
				fmt.Fprintf(errOut, "write: %v\n", err)
				return 1
			}
			fmt.Fprintf(out, "wrote %s (%d bytes)\n", outPath, len(b))
			return 0
		}
		_, _ = out.Write(b)
		return 0

	case "ls":
		fs := flag.NewFlagSet("pin ls", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var limit int
		fs.IntVar(&limit, "limit", 10, "Maximum entries to list")
		pinFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		rows, err := pinClient(fs).ListPinned(ctx, limit)
		if err != nil {
			fmt.Fprintf(errOut, "list: %v\n", err)
			return 1
		}
		for _, r := range rows {
			fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", r.IpfsHash, r.Size, r.DatePinned, r.Metadata.Name)
		}
		return 0

	case "rm":
		fs := flag.NewFlagSet("pin rm", flag.ContinueOnError)
		fs.SetOutput(errOut)
		pinFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: certledger pin rm <hash>")
			return 2
		}
		if err := pinClient(fs).Unpin(ctx, fs.Arg(0)); err != nil {
			fmt.Fprintf(errOut, "unpin: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "unpinned %s\n", fs.Arg(0))
		return 0

	case "auth":
		fs := flag.NewFlagSet("pin auth", flag.ContinueOnError)
		fs.SetOutput(errOut)
		pinFlags(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		msg, err := pinClient(fs).TestAuthentication(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "auth: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, msg)
		return 0

	default:
		fmt.Fprintf(errOut, "unknown pin subcommand: %s\n", args[0])
		return 2
	}
}

func dialLedger(target string, signer *keys.Signer, errOut io.Writer) (*ledger.Client, bool) {
	if target == "" {
		fmt.Fprintln(errOut, "missing --target")
		return nil, false
	}
	client, err := ledger.Dial(target, ledger.DialOptions{Timeout: 10 * time.Second})
	if err != nil {
		fmt.Fprintf(errOut, "dial ledger: %v\n", err)
		return nil, false
	}
	client.Signer = signer
	client.Timeout = 30 * time.Second
	return client, true
}

func loadSigner(signerName, signerRole, seedHex string, errOut io.Writer) (*keys.Signer, bool) {
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return nil, false
	}
	seed, err := ks.LoadSeed(seedHex, signerName, signerRole, "")
	if err != nil {
		fmt.Fprintf(errOut, "load signer: %v\n", err)
		return nil, false
	}
	signer, err := keys.NewEd25519Signer(seed)
	if err != nil {
		fmt.Fprintf(errOut, "build signer: %v\n", err)
		return nil, false
	}
	return signer, true
}

func cmdIssue(args []string, out io.Writer, errOut io.Writer, bulk bool) int {
	name := "issue"
	if bulk {
		name = "bulk"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	var projectID, background, target string
	var signerName, signerRole, seedHex string
	fs.StringVar(&projectID, "project", "", "Project id holding the roster and template")
	fs.StringVar(&background, "background", "", "Background image for rendering")
	fs.StringVar(&target, "target", "", "Ledger gRPC address")
	fs.StringVar(&signerName, "signer", "", "Key name for signing commits")
	fs.StringVar(&signerRole, "signer-role", "", "Optional role under --signer")
	fs.StringVar(&seedHex, "seed-hex", "", "Raw ed25519 seed (alternative to --signer)")
	pinFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if projectID == "" || background == "" {
		fmt.Fprintln(errOut, "missing --project or --background")
		return 2
	}

	st, ok := openStore(errOut)
	if !ok {
		return 1
	}
	proj, err := st.Get(projectID)
	if err != nil {
		fmt.Fprintf(errOut, "load project: %v\n", err)
		return 1
	}
	bg, err := os.ReadFile(background)
	if err != nil {
		fmt.Fprintf(errOut, "read background: %v\n", err)
		return 1
	}
	signer, ok := loadSigner(signerName, signerRole, seedHex, errOut)
	if !ok {
		return 1
	}
	client, ok := dialLedger(target, signer, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	iss, err := issuer.New(issuer.Config{
		Project:    proj,
		Background: bg,
		Uploader:   pinClient(fs),
		Ledger:     client,
		Store:      st,
		OnProgress: func(p model.Progress) {
			fmt.Fprintf(errOut, "issuing %d/%d\n", p.Current, p.Total)
		},
	})
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 1
	}

	ctx := context.Background()
	if bulk {
		certs, err := iss.IssueAll(ctx)
		if err != nil {
			fmt.Fprintf(errOut, "bulk issue: %v\n", err)
			return 1
		}
		for _, c := range certs {
			fmt.Fprintf(out, "%s\t%s\t%s\n", c.CertificateID, c.StudentName, c.ContentHash)
		}
		fmt.Fprintf(errOut, "issued %d certificates in one transaction %s\n", len(certs), certs[0].TransactionID)
		return 0
	}

	cert, err := iss.IssueCurrent(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "issue: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s\t%s\t%s\n", cert.CertificateID, cert.StudentName, cert.ContentHash)
	fmt.Fprintf(errOut, "transaction %s\n", cert.TransactionID)
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var target string
	fs.StringVar(&target, "target", "", "Ledger gRPC address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: certledger verify --target <addr> <certificate-id>")
		return 2
	}
	client, ok := dialLedger(target, nil, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	valid, err := client.Verify(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}
	if !valid {
		fmt.Fprintln(out, "INVALID")
		return 1
	}
	fmt.Fprintln(out, "VALID")
	return 0
}

func cmdRead(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var target, network string
	fs.StringVar(&target, "target", "", "Ledger gRPC address")
	fs.StringVar(&network, "network", "", "Network name for explorer links")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: certledger read --target <addr> <certificate-id>")
		return 2
	}
	client, ok := dialLedger(target, nil, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	rec, err := client.Read(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Student:  %s\n", rec.StudentName)
	fmt.Fprintf(out, "Hash:     %s\n", rec.ContentHash)
	fmt.Fprintf(out, "Issuer:   %s\n", ledger.ShortAddress(rec.Issuer))
	fmt.Fprintf(out, "Issued:   %s\n", time.Unix(rec.Timestamp, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "Valid:    %v\n", rec.IsValid)
	return 0
}

func cmdCounter(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("counter", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var target string
	fs.StringVar(&target, "target", "", "Ledger gRPC address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	client, ok := dialLedger(target, nil, errOut)
	if !ok {
		return 1
	}
	defer client.Close()

	n, err := client.Counter(context.Background())
	if err != nil {
		fmt.Fprintf(errOut, "counter: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, n)
	return 0
}

func cmdProject(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: certledger project <create|list|show|delete|export|import|stats> ...")
		return 2
	}
	st, ok := openStore(errOut)
	if !ok {
		return 1
	}

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("project create", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var name, description string
		fs.StringVar(&name, "name", "", "Project name")
		fs.StringVar(&description, "description", "", "Project description")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if name == "" {
			fmt.Fprintln(errOut, "missing --name")
			return 2
		}
		p, err := st.Create(name, description)
		if err != nil {
			fmt.Fprintf(errOut, "create: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, p.ID)
		return 0

	case "list":
		projects, err := st.List()
		if err != nil {
			fmt.Fprintf(errOut, "list: %v\n", err)
			return 1
		}
		for _, p := range projects {
			fmt.Fprintf(out, "%s\t%-24s %3d recipients %3d certificates\t%s\n",
				p.ID, p.Name, len(p.Recipients), len(p.Certificates), p.UpdatedAt.Format(time.RFC3339))
		}
		return 0

	case "show":
		if len(args) != 2 {
			fmt.Fprintln(errOut, "usage: certledger project show <id>")
			return 2
		}
		p, err := st.Get(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "show: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "Name:         %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "Description:  %s\n", p.Description)
		}
		fmt.Fprintf(out, "Recipients:   %d\n", len(p.Recipients))
		fmt.Fprintf(out, "Template:     %v\n", p.Template != nil && p.Template.Complete())
		fmt.Fprintf(out, "Certificates: %d\n", len(p.Certificates))
		for _, c := range p.Certificates {
			fmt.Fprintf(out, "  %s\t%-24s %s\n", c.CertificateID, c.StudentName, c.ContentHash)
		}
		return 0

	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(errOut, "usage: certledger project delete <id>")
			return 2
		}
		if err := st.Delete(args[1]); err != nil {
			fmt.Fprintf(errOut, "delete: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "deleted %s\n", args[1])
		return 0

	case "export":
		fs := flag.NewFlagSet("project export", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var outPath string
		fs.StringVar(&outPath, "o", "", "Write to file instead of stdout")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: certledger project export <id> [-o <file>]")
			return 2
		}
		data, err := st.Export(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(errOut, "export: %v\n", err)
			return 1
		}
		if outPath != "" {
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				fmt.Fprintf(errOut, "write: %v\n", err)
				return 1
			}
			fmt.Fprintf(out, "wrote %s\n", outPath)
			return 0
		}
		_, _ = out.Write(data)
		fmt.Fprintln(out)
		return 0

	case "import":
		if len(args) != 2 {
			fmt.Fprintln(errOut, "usage: certledger project import <file>")
			return 2
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "read: %v\n", err)
			return 1
		}
		p, err := st.Import(data)
		if err != nil {
			fmt.Fprintf(errOut, "import: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "%s\t%s\n", p.ID, p.Name)
		return 0

	case "stats":
		stats, err := st.Stats()
		if err != nil {
			fmt.Fprintf(errOut, "stats: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "Projects:     %d\n", stats.TotalProjects)
		fmt.Fprintf(out, "Certificates: %d\n", stats.TotalCertificates)
		if len(stats.Recent) > 0 {
			fmt.Fprintln(out, "Recently updated:")
			for _, p := range stats.Recent {
				fmt.Fprintf(out, "  %-24s %s\n", p.Name, p.UpdatedAt.Format(time.RFC3339))
			}
		}
		return 0

	default:
		fmt.Fprintf(errOut, "unknown project subcommand: %s\n", args[0])
		return 2
	}
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "certledger key: minimal local key management (KMS-lite)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  certledger key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  certledger key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  certledger key list")
	fmt.Fprintln(w, "  certledger key export --name <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name, seedHex string
	var force bool
	fs.StringVar(&name, "name", "", "Key name (directory under ~/.certledger/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible setups)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		seed, err = keys.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "generate seed: %v\n", err)
			return 1
		}
	}

	issuerKey, filePath, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "init key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s\n", issuerKey)
	fmt.Fprintf(errOut, "seed written to %s\n", filePath)
	if seedHex == "" {
		fmt.Fprintf(errOut, "seed-hex: %s\n", hex.EncodeToString(seed))
	}
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var from, role string
	var force bool
	fs.StringVar(&from, "from", "", "Root key name to derive from")
	fs.StringVar(&role, "role", "", "Role name (e.g. registrar)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing role key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "missing --from or --role")
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return 1
	}
	issuerKey, filePath, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive key: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "%s\n", issuerKey)
	fmt.Fprintf(errOut, "seed written to %s\n", filePath)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, e := range entries {
		if len(e.Permissions) == 0 {
			fmt.Fprintln(out, e.Identifier)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", e.Identifier, strings.Join(e.Permissions, ","))
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name, role string
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "open key store: %v\n", err)
		return 1
	}
	issuerKey, err := ks.ExportKey(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export key: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, issuerKey)
	return 0
}

func cmdSession(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: certledger session <set|show|clear> ...")
		return 2
	}
	st, ok := openStore(errOut)
	if !ok {
		return 1
	}

	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("session set", flag.ContinueOnError)
		fs.SetOutput(errOut)
		var address, network string
		fs.StringVar(&address, "address", "", "Wallet account address")
		fs.StringVar(&network, "network", "", "Network name (e.g. sepolia)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if address == "" || network == "" {
			fmt.Fprintln(errOut, "missing --address or --network")
			return 2
		}
		if err := st.SaveSession(model.Session{Address: address, Network: network}); err != nil {
			fmt.Fprintf(errOut, "save session: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "session: %s on %s\n", ledger.ShortAddress(address), network)
		return 0

	case "show":
		sess, exists, err := st.CurrentSession()
		if err != nil {
			fmt.Fprintf(errOut, "load session: %v\n", err)
			return 1
		}
		if !exists {
			fmt.Fprintln(out, "no session")
			return 0
		}
		fmt.Fprintf(out, "Address: %s\n", sess.Address)
		fmt.Fprintf(out, "Network: %s\n", sess.Network)
		fmt.Fprintf(out, "Since:   %s\n", sess.SavedAt.Format(time.RFC3339))
		return 0

	case "clear":
		if err := st.ClearSession(); err != nil {
			fmt.Fprintf(errOut, "clear session: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, "session cleared")
		return 0

	default:
		fmt.Fprintf(errOut, "unknown session subcommand: %s\n", args[0])
		return 2
	}
}
