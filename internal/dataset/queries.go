package dataset

const rawDataFields = `items { id valueString valueNumber treeId featureId }`

const getTemplateQuery = `query GetTemplate($id: ID!) {
  getTemplate(id: $id) { id name }
}`

const listTemplateFeaturesQuery = `query ListTemplateFeatures($filter: ModelTemplateFeatureFilterInput, $limit: Int, $nextToken: String) {
  listTemplateFeatures(filter: $filter, limit: $limit, nextToken: $nextToken) {
    items { id featureId feature { id name description isNumeric } }
    nextToken
  }
}`

const getTreeQuery = `query GetTree($id: ID!) {
  getTree(id: $id) { id name rawData(limit: 1000) { ` + rawDataFields + ` } }
}`

const listTreesQuery = `query ListTrees($filter: ModelTreeFilterInput, $limit: Int, $nextToken: String) {
  listTrees(filter: $filter, limit: $limit, nextToken: $nextToken) {
    items { id name rawData(limit: 1000) { ` + rawDataFields + ` } }
    nextToken
  }
}`

const createRawDataMutation = `mutation CreateRawData($input: CreateRawDataInput!) {
  createRawData(input: $input) { id }
}`
