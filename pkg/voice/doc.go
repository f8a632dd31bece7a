// Package voice implements the per-session orchestrator that turns a stream
// of microphone audio frames into synthesized spoken replies.
//
// Each Orchestrator owns one session: a voice activity detector, a sentence
// segmenter, and STT/LLM/TTS providers composed into a cancellable streaming
// pipeline. The transport layer feeds PCM16 frames in through PushAudio and
// drains JSON-serializable events from Events(); capture is never blocked by
// response generation.
//
// Turn-taking follows a small state machine (idle, listening, finalizing,
// responding). The user can interrupt a reply mid-synthesis (barge-in) or
// force an utterance to dispatch with an explicit mute signal (push-to-talk).
package voice
