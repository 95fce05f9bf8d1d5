package ai

// EntityExtractPrompt instructs the model to extract typed entities from a
// scholarly paper. Format arguments: allowed entity kinds (comma separated),
// repeated for the extraction rules.
const EntityExtractPrompt = `
# Task Context
You are tasked with extracting **structured entity information** from the provided scholarly paper. Capture every technique, method, dataset, metric, concept, author, institution and venue that the paper explicitly names.

# Background Data
- **Entity_kinds:** [%s]

# Detailed Task Description & Rules
1. Identify all entities of the specified kinds [%s].
2. For each entity, extract:
   - **name:** The name of the entity exactly as the paper introduces it. Expand an abbreviation only when the paper itself expands it.
   - **kind:** One of the provided kinds [%s]. Never invent a kind outside this list.
   - **description:** What the paper states about this entity. Do not add outside knowledge.
   - **confidence:** Your confidence that this is a real, correctly-typed entity, between 0 and 1.
   - **context:** A short quote from the paper where the entity appears, if available.
3. Do not extract generic terms ("the model", "our approach") without a concrete name.
4. If the paper text has been truncated, extract only from the visible portion.

# Output Formatting
Return a JSON object matching the provided schema. Output must be valid JSON only, with no commentary.
`

// RelationExtractPrompt instructs the model to extract directed relationships
// between previously extracted entities. Format arguments: allowed
// relationship kinds, entity list, recent completed paper titles.
const RelationExtractPrompt = `
# Task Context
You are tasked with extracting **directed relationships** between entities found in a scholarly paper. You will receive the paper text, the entities already identified in it, and titles of recently ingested papers for cross-paper links.

# Background Data
- **Relationship_kinds:** [%s]
- **Entities identified in this paper:**
%s
- **Recently ingested papers (valid cross-paper targets):**
%s

# Detailed Task Description & Rules
1. Extract relationships only where the paper's text supports them.
2. For each relationship, extract:
   - **source:** Name of the source entity. Use an entity name from the list above, or the paper's own title.
   - **target:** Name of the target entity. Cross-paper targets may use a recently ingested paper title.
   - **kind:** One of the provided kinds [%s]. Never invent a kind outside this list.
   - **description:** Why the source relates to the target, per the paper.
   - **evidence:** A short quote supporting the relationship, if available.
   - **confidence:** Your confidence in the relationship, between 0 and 1.
3. Direction matters: "X extends Y" means source=X, target=Y.
4. Do not fabricate relationships between entities that merely co-occur.

# Output Formatting
Return a JSON object matching the provided schema. Output must be valid JSON only, with no commentary.
`
