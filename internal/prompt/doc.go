// Package prompt connects geoqa examples to the dspy-go predictor engine.
//
// # Core Components
//
// Signature: declarative input/output specification plus instruction text
//
//	sig := prompt.MustParseSignature("question -> answer").
//	    WithInstruction("Answer questions about geography.")
//	sig := prompt.GeographyQA // predefined
//
// Modules: anything implementing Forward(ctx, example.Example). Predict wraps
// dspy-go's Predict with tracing and metrics; the model is passed explicitly.
//
//	llm := prompt.NewLLMServiceAdapter(service)
//	predictor := prompt.NewPredict(prompt.GeographyQA,
//	    prompt.WithLLM(llm),
//	    prompt.WithTracer(tracer),
//	    prompt.WithMetrics(collector))
//
//	in := example.FromMap(map[string]any{
//	    "question": "What is the highest mountain in North America?",
//	}, "question")
//	out, err := predictor.Forward(ctx, in)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.Get("answer"))
//
// Metrics and evaluation:
//
//	report, err := prompt.Evaluate(ctx, predictor,
//	    &prompt.ExactMatchMetric{Normalize: true}, devset,
//	    prompt.EvaluateOptions{Concurrency: 8})
//
// ForwardStream hands the raw completion to a callback while it streams:
//
//	out, err := predictor.ForwardStream(ctx, in, func(text string) error {
//	    fmt.Print(text)
//	    return nil
//	})
package prompt
