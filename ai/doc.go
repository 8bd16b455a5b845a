// Package ai defines the abstract interfaces for the AI services used by
// the tariff classifier: text embedding and free-form text generation.
//
// The interfaces here decouple the classification pipeline from any
// concrete model or vendor. Two implementations are provided as
// subpackages:
//
//   - openai: production implementation speaking the OpenAI-compatible
//     API, usable with local servers (Ollama, LocalAI, vLLM) as well as
//     hosted endpoints.
//   - mock: deterministic in-process implementation for tests. The mock
//     embedder hashes text into stable pseudo-vectors, and the mock
//     generator replays scripted responses.
//
// Generated text is always treated as untrusted. The embedding side feeds
// the similarity search; the generation side produces search queries and
// clarifying questions, both of which are validated and guarded by their
// consumers before use. A generation failure never fails a classification
// session, because every consumer carries a deterministic fallback.
//
// Configuration follows the functional options pattern:
//
//	cfg := ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"),
//	    ai.WithEmbeddingModel("embeddinggemma"),
//	    ai.WithGeneratorModel("qwen2.5:3b"),
//	)
//
// Host URLs are normalized to carry the /v1 suffix expected by
// OpenAI-compatible APIs.
package ai
