// Package redis wraps go-redis for the two jobs Redis does here: carrying
// serviceChanged notifications over Pub/Sub and persisting endpoint lists
// for the demo registry through JSONStore.
package redis
