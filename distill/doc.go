// Package distill turns conversation threads into knowledge records and
// cumulative user profiles.
//
// Three loops run for the life of the process:
//
//   - the Selector scans for threads whose activity has moved past their
//     watermark and queues them, skipping threads already in flight;
//   - the Distiller summarizes each queued thread with a language model,
//     stores a KnowledgeRecord and advances the thread's watermark;
//   - the Refiner merges the new facets into the latest UserBotProfile of
//     the thread's user and bot.
//
// A thread's watermark only advances when its record is stored. A model reply
// that cannot be parsed is dropped and the thread is picked up again by a
// later scan.
package distill
