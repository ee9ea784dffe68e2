// Package pipeline drives candidates from a feed through resolution, fetch,
// validation, hashing, save and record.
//
// Processing is strictly sequential: one candidate finishes before the next
// begins. Progress is committed to the Store as it happens, so a run that is
// cancelled or killed resumes on the next invocation through pruning:
//
//   - a post url that is completed, or an image url that is recorded, is
//     dropped before any resolver or network call;
//   - every saved or duplicate-content image url is marked completed at once;
//   - a post url is marked completed only after each of its targets settled,
//     so a gallery that failed part way is resolved again next run and only
//     its missing images are fetched.
//
// Outcomes are reported through an Observer instead of being printed.
package pipeline
