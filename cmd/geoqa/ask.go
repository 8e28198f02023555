package main

import (
	"fmt"
	"strings"

	"github.com/longregen/geoqa/internal/example"
	"github.com/spf13/cobra"
)

const defaultQuestion = "What is the highest mountain in North America?"

func askCmd() *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the model a geography question",
		Long: `Ask sends one question through the geography signature and prints the answer.
Without arguments it asks: ` + defaultQuestion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIKey(); err != nil {
				return err
			}

			question := defaultQuestion
			if len(args) > 0 {
				question = strings.Join(args, " ")
			}

			predictor, _ := newPredictor()
			in := example.New(
				map[string]example.Value{"question": example.String(question)},
				[]string{"question"},
				nil,
			)

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Asking the LLM...")

			var (
				out example.Example
				err error
			)
			if stream {
				fmt.Fprintln(w)
				out, err = predictor.ForwardStream(cmd.Context(), in, func(text string) error {
					_, werr := fmt.Fprint(w, text)
					return werr
				})
				fmt.Fprintln(w)
			} else {
				out, err = predictor.Forward(cmd.Context(), in)
			}
			if err != nil {
				return fmt.Errorf("prediction failed: %w", err)
			}

			fmt.Fprintf(w, "\nAnswer: %s\n", out.Get("answer"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&stream, "stream", false, "print the raw completion as it streams")
	return cmd
}
