/*
The sync package implements foldersync's mirroring algorithm. It makes a
replica directory tree match a source directory tree, one level at a time.

A cycle has two passes over the same pair of roots:
1) Reconcile walks the source. Files missing from the replica are copied,
   files whose contents differ are overwritten, and missing directories are
   created before their contents are visited.
2) Prune walks the replica. Files and directories that no longer exist in the
   source are removed. A removed directory is deleted with all of its contents
   and is not descended into.

Both passes share a single walk that is parameterized by a visitor, and every
change applied to the replica is reported as an Event to a Recorder at the
moment the change completes.

Nothing is remembered between cycles. Each cycle compares the trees from
scratch, so changes made to the replica by someone else are corrected on the
next cycle.
*/
package sync
