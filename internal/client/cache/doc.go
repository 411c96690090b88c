// Package cache is a bounded query cache with tag-based invalidation.
//
// Queries store their decoded result under a key together with the tags
// they provide (a note id, the note list, the profile). Mutations
// invalidate tags, which drops every entry that provided them. Entries are
// also evicted by LRU order and by age.
package cache
