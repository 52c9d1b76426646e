// practice.go implements "consultprep practice", a line-mode interview.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/consultprep-dev/consultprep/internal/cases"
	"github.com/consultprep-dev/consultprep/internal/interview"
)

// DefaultFeedback is recorded when --feedback is not given.
const DefaultFeedback = "Completed"

const practiceHelp = `Commands:
  /next   move to the next stage
  /end    end the case, score it and save it to your history
  /quit   leave without recording a score
  /help   show this help`

type practiceOptions struct {
	caseID   string
	feedback string
}

func newPracticeCmd(opts *options) *cobra.Command {
	popts := &practiceOptions{}
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Run a case interview in line mode",
		Long: `Run a case interview on the terminal, one line per turn. Works without a
TTY, so transcripts can be piped in.

` + practiceHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPractice(cmd, opts, popts)
		},
	}
	cmd.Flags().StringVar(&popts.caseID, "case", cases.DefaultID, "Case id (see 'consultprep cases')")
	cmd.Flags().StringVar(&popts.feedback, "feedback", DefaultFeedback, "Feedback note stored with the score")
	return cmd
}

func runPractice(cmd *cobra.Command, opts *options, popts *practiceOptions) error {
	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, opts, true)
	if err != nil {
		return err
	}
	defer ws.Close()

	entry, ok := ws.library.Get(popts.caseID)
	if !ok {
		return fmt.Errorf("unknown case %q; run 'consultprep cases' to list them", popts.caseID)
	}

	p := &practiceRun{
		ctx:      ctx,
		ws:       ws,
		out:      cmd.OutOrStdout(),
		feedback: popts.feedback,
	}
	return p.run(entry, cmd.InOrStdin())
}

type practiceRun struct {
	ctx      context.Context
	ws       *workspace
	out      io.Writer
	feedback string
	sess     *interview.Session
}

func (p *practiceRun) run(entry cases.Entry, in io.Reader) error {
	p.sess = p.ws.controller.Start(entry.Descriptor())
	p.save()

	fmt.Fprintf(p.out, "%s (%s · %s · %s)\n", entry.Title, entry.Industry, entry.Difficulty, entry.Type)
	fmt.Fprintln(p.out, "Type /help for commands.")
	fmt.Fprintln(p.out)
	p.printInterviewer(p.sess.Messages()[0].Text)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(p.out, "[%s] > ", p.sess.Stage())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/help":
			fmt.Fprintln(p.out, practiceHelp)
		case "/next":
			p.advance()
		case "/end":
			return p.finish()
		case "/quit":
			fmt.Fprintln(p.out, "\nLeaving without a score. The transcript is saved.")
			return nil
		default:
			p.submit(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintln(p.out, "\nInput closed before /end. The transcript is saved without a score.")
	return nil
}

func (p *practiceRun) submit(text string) {
	reply, err := p.ws.controller.Submit(p.ctx, p.sess, text)
	if err != nil {
		fmt.Fprintf(p.out, "Error: %v\n", err)
		return
	}
	p.save()
	p.printInterviewer(reply.Text)
	if p.sess.StageComplete() && !p.sess.Stage().Terminal() {
		next := interview.Stages[p.sess.StageIndex()+1]
		fmt.Fprintf(p.out, "(Stage complete. Type /next to move to %s.)\n", next)
	}
}

func (p *practiceRun) advance() {
	if !p.ws.controller.Advance(p.sess) {
		fmt.Fprintln(p.out, "Already at the final stage. Type /end to finish.")
		return
	}
	p.save()
	msgs := p.sess.Messages()
	p.printInterviewer(msgs[len(msgs)-1].Text)
}

func (p *practiceRun) finish() error {
	p.save()
	entry, err := p.ws.controller.Finish(p.ctx, p.sess, p.feedback)
	if err != nil {
		return err
	}
	b := entry.Breakdown
	fmt.Fprintf(p.out, "\nScore: %d\n", entry.Score)
	fmt.Fprintf(p.out, "  Structure:     %d\n  Analysis:      %d\n  Communication: %d\n", b.Structure, b.Analysis, b.Communication)
	fmt.Fprintln(p.out, "Saved to history. Run 'consultprep stats' to see your dashboard.")
	return nil
}

func (p *practiceRun) printInterviewer(text string) {
	fmt.Fprintf(p.out, "\nInterviewer: %s\n\n", text)
}

func (p *practiceRun) save() {
	if err := p.ws.store.SaveTranscript(p.ctx, p.sess); err != nil {
		p.ws.logger.Warn("saving transcript failed",
			zap.String("session", p.sess.ID),
			zap.Error(err))
	}
}
