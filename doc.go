// libmerge physically merges groups of related native libraries into
// fewer output shared objects, for Android targets where every loaded
// DSO carries a startup and paging cost and older runtimes cap the
// number of DSOs a process may load.
//
// A merge is described as an ordered list of groups, each naming an
// output library and the patterns that select its members. The
// enhancer partitions the library dependency graph into these groups,
// validates the induced quotient graph (it must stay acyclic), and
// builds one composite linkable per group in dependency order, with a
// deterministic identity so structurally identical merges can share
// cached build artifacts. Libraries no group claims pass through
// untouched.
//
// Merging intentionally crosses what used to be separate link
// boundaries, so symbols that were private to one constituent library
// become visible to the others. The elfsym package and the
// localize_symbols tool patch a linked shared object in place,
// demoting a caller-provided set of symbols to local binding and
// hidden visibility without disturbing the symbol table layout.
//
// libmerge registers its link and patch rules through Blueprint and
// leaves scheduling, execution and caching to the build engine.
package libmerge
